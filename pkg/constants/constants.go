// Package constants provides shared constants for the batch-cost application.
package constants

// Currency constants
const (
	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100
	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
	// FloorEpsilon is added before flooring unit counts so that products such as
	// 100 * 0.9 = 89.99999999999999 still floor to 90.
	FloorEpsilon = 1e-9
)

// Pricing bounds
const (
	// MaxMarkup is the exclusive upper bound for a markup ratio (500%).
	MaxMarkup = 5.0
	// TargetMarginCeiling is the largest target margin a strategy will price at.
	TargetMarginCeiling = 0.99
	// SingularityEpsilon is the smallest allowed value of 1 - targetMargin.
	SingularityEpsilon = 1e-4
	// DefaultCompetitiveMargin is used by the competitive strategy when the
	// request carries no target margin.
	DefaultCompetitiveMargin = 0.30
	// DefaultCostPlusAdder is the per-unit overhead recovery for the cost-plus strategy.
	DefaultCostPlusAdder = 0.0
	// DefaultCharmSuffix is the fractional ending applied by charm pricing.
	DefaultCharmSuffix = 0.99
	// CharmFallbackThreshold is how far below the original price a charm price may land.
	CharmFallbackThreshold = 0.50
)

// Risk model defaults
const (
	// RiskBufferCeiling caps the risk buffer fraction.
	RiskBufferCeiling = 0.50
	// MaxMarketPressure bounds the absolute market pressure input.
	MaxMarketPressure = 0.5
	// ConfidenceVolatilityWeight is how much volatility lowers pricing confidence.
	ConfidenceVolatilityWeight = 0.6
	// ConfidencePressureWeight is how much |market pressure| lowers pricing confidence.
	ConfidencePressureWeight = 0.8
	// BreakEvenBatchMultiple is the number of batches of sellable units a monthly
	// break-even count may reach before a warning is emitted.
	BreakEvenBatchMultiple = 30.0
	// LowConfidenceThreshold marks a recommendation as low confidence.
	LowConfidenceThreshold = 0.5
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"
	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default batch file name
	DefaultConfigFile = "batch.yaml"
	// ExampleConfigFile is the example batch file name
	ExampleConfigFile = "batch.yaml.example"
	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
	// EnvPrefix is the prefix for environment overrides read by viper.
	EnvPrefix = "BATCHCOST"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"
	// DefaultMaxUploadSizeBytes is the default maximum upload size for batch files (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
	// DefaultCacheTTLSeconds is how long the server memoizes identical calculations.
	DefaultCacheTTLSeconds = 300
)
