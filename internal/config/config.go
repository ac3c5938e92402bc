// Package config defines the batch file structures and the functions for
// loading them and turning them into costing requests.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/batch-cost/internal/costing"
	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/iwvelando/batch-cost/pkg/rounding"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for batch-cost.
type Configuration struct {
	Engine  EngineSection
	Common  Common
	Batches []Batch
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// EngineSection overrides the engine's pipeline constants. Zero values keep
// the built-in defaults.
type EngineSection struct {
	CostPlusAdder            float64 `yaml:"costPlusAdder,omitempty"`
	CompetitiveDefaultMargin float64 `yaml:"competitiveDefaultMargin,omitempty"`
	DefaultCharmSuffix       float64 `yaml:"defaultCharmSuffix,omitempty"`
	RiskBufferCeiling        float64 `yaml:"riskBufferCeiling,omitempty"`
	BreakEvenBatchMultiple   float64 `yaml:"breakEvenBatchMultiple,omitempty"`
	// Currencies maps currency codes to rounding intervals, layered over the
	// built-in table.
	Currencies map[string]string `yaml:"currencies,omitempty"`
}

// Common holds the commercial settings shared by every batch. A value the
// batch sets itself takes precedence, including an explicit zero.
type Common struct {
	Currency         string  `yaml:"currency,omitempty"`
	VAT              float64 `yaml:"vat,omitempty"`
	Strategy         string  `yaml:"strategy,omitempty"`
	Markup           float64 `yaml:"markup,omitempty"`
	TargetMargin     float64 `yaml:"targetMargin,omitempty"`
	RoundingRule     string  `yaml:"roundingRule,omitempty"`
	RoundingMode     string  `yaml:"roundingMode,omitempty"`
	MonthlyFixedCost float64 `yaml:"monthlyFixedCost,omitempty"`
	PriceVolatility  float64 `yaml:"priceVolatility,omitempty"`
	RiskAppetite     float64 `yaml:"riskAppetite,omitempty"`
	MarketPressure   float64 `yaml:"marketPressure,omitempty"`
}

// Batch is one production run in the batch file. Inactive batches are
// skipped.
type Batch struct {
	Active bool `yaml:"active"`
	// Optimizer, when set, searches for the smallest markup that meets its
	// goal instead of pricing at the configured markup.
	Optimizer            *OptimizerConfig `yaml:"optimizer,omitempty"`
	costing.BatchRequest `mapstructure:",squash" yaml:",inline"`

	// explicit holds the lowercased keys written in the batch file.
	explicit map[string]bool
}

// LoadConfiguration takes a file path as input and loads the configuration
// there. The file type follows the extension and defaults to YAML.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType(ConfigType(configPath))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a configuration of the given type
// (yaml, json, toml, ...) from r.
func LoadConfigurationFromReader(r io.Reader, configType string) (*Configuration, error) {
	if configType == "" {
		configType = "yml"
	}
	v := newViper()
	v.SetConfigType(configType)

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	raw, _ := v.Get("batches").([]interface{})
	for i := range configuration.Batches {
		if i >= len(raw) {
			break
		}
		configuration.Batches[i].explicit = batchKeys(raw[i])
	}
	return &configuration, nil
}

func batchKeys(raw interface{}) map[string]bool {
	keys := make(map[string]bool)
	switch m := raw.(type) {
	case map[string]interface{}:
		for k := range m {
			keys[strings.ToLower(k)] = true
		}
	case map[interface{}]interface{}:
		for k := range m {
			keys[strings.ToLower(fmt.Sprint(k))] = true
		}
	}
	return keys
}

// ConfigType returns the viper config type for a file name, taken from its
// extension. Unknown or missing extensions are read as YAML.
func ConfigType(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "yml"
	}
	ext := strings.ToLower(name[idx+1:])
	for _, supported := range viper.SupportedExts {
		if ext == supported {
			return ext
		}
	}
	return "yml"
}

// ActiveBatches returns the batches marked active, in file order.
func (c *Configuration) ActiveBatches() []Batch {
	var active []Batch
	for _, batch := range c.Batches {
		if batch.Active {
			active = append(active, batch)
		}
	}
	return active
}

// ToRequest returns a copy of the batch's request with the common settings
// and structural defaults applied.
func (b Batch) ToRequest(common Common) *costing.BatchRequest {
	req := b.BatchRequest
	req.Items = append([]costing.RecipeItemLine(nil), b.Items...)
	req.Labor = append([]costing.LaborRoleLine(nil), b.Labor...)

	if req.BatchMultiplier == 0 {
		req.BatchMultiplier = 1
	}
	if req.BatchesPerMediumChange == 0 {
		req.BatchesPerMediumChange = 1
	}

	req.Currency = firstString(req.Currency, common.Currency)
	req.Strategy = firstString(req.Strategy, common.Strategy)
	req.RoundingRule = firstString(req.RoundingRule, common.RoundingRule)
	req.RoundingMode = firstString(req.RoundingMode, common.RoundingMode)
	req.VAT = b.inherit("vat", req.VAT, common.VAT)
	req.Markup = b.inherit("markup", req.Markup, common.Markup)
	req.TargetMargin = b.inherit("targetmargin", req.TargetMargin, common.TargetMargin)
	req.MonthlyFixedCost = b.inherit("monthlyfixedcost", req.MonthlyFixedCost, common.MonthlyFixedCost)
	req.PriceVolatility = b.inherit("pricevolatility", req.PriceVolatility, common.PriceVolatility)
	req.RiskAppetite = b.inherit("riskappetite", req.RiskAppetite, common.RiskAppetite)
	req.MarketPressure = b.inherit("marketpressure", req.MarketPressure, common.MarketPressure)

	return &req
}

// Requests converts every active batch into a costing request.
func (c *Configuration) Requests() []*costing.BatchRequest {
	active := c.ActiveBatches()
	requests := make([]*costing.BatchRequest, 0, len(active))
	for _, batch := range active {
		requests = append(requests, batch.ToRequest(c.Common))
	}
	return requests
}

// ToEngineConfig overlays the section on the engine defaults.
func (e EngineSection) ToEngineConfig() costing.EngineConfig {
	cfg := costing.DefaultEngineConfig()
	cfg.CostPlusAdder = e.CostPlusAdder
	if e.CompetitiveDefaultMargin > 0 {
		cfg.CompetitiveDefaultMargin = e.CompetitiveDefaultMargin
	}
	if e.DefaultCharmSuffix > 0 {
		cfg.DefaultCharmSuffix = e.DefaultCharmSuffix
	}
	if e.RiskBufferCeiling > 0 {
		cfg.RiskBufferCeiling = e.RiskBufferCeiling
	}
	if e.BreakEvenBatchMultiple > 0 {
		cfg.BreakEvenBatchMultiple = e.BreakEvenBatchMultiple
	}
	cfg.Currencies = rounding.DefaultCurrencyTable().Merge(e.Currencies)
	return cfg
}

// IsDefault reports whether the section leaves every engine constant at its
// built-in value.
func (e EngineSection) IsDefault() bool {
	return e.CostPlusAdder == 0 && e.CompetitiveDefaultMargin == 0 && e.DefaultCharmSuffix == 0 &&
		e.RiskBufferCeiling == 0 && e.BreakEvenBatchMultiple == 0 && len(e.Currencies) == 0
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Request-level problems are reported by the engine.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if len(c.ActiveBatches()) == 0 {
		warnings = append(warnings, "no active batches found in configuration")
	}

	currencies := c.Engine.ToEngineConfig().Currencies
	for code, rule := range c.Engine.Currencies {
		if _, ok := rounding.ParseInterval(rule); !ok {
			warnings = append(warnings, fmt.Sprintf("currency %s has invalid rounding interval %q; ignored", strings.ToUpper(code), rule))
		}
	}

	warnings = append(warnings, checkCommercial("common", c.Common.Strategy, c.Common.RoundingRule, c.Common.Currency, currencies)...)

	seen := make(map[string]int, len(c.Batches))
	for i, batch := range c.Batches {
		label := batch.Name
		if label == "" {
			label = fmt.Sprintf("batch %d", i+1)
			warnings = append(warnings, fmt.Sprintf("%s has no name", label))
		} else if prev, dup := seen[label]; dup {
			warnings = append(warnings, fmt.Sprintf("batch name %q is used by batches %d and %d", label, prev+1, i+1))
		} else {
			seen[label] = i
		}

		warnings = append(warnings, checkCommercial(label, batch.Strategy, batch.RoundingRule, batch.Currency, currencies)...)

		if batch.Optimizer != nil {
			probe := *batch.Optimizer
			if err := probe.Validate(); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", label, err))
			}
		}

		if batch.TheoreticalOutput > 0 && batch.UnitWeight > 0 && batch.OutputMode == "" {
			warnings = append(warnings, fmt.Sprintf("%s sets both theoreticalOutput and unitWeight without outputMode", label))
		}
	}

	return warnings
}

func checkCommercial(label, strategy, rule, currency string, currencies rounding.CurrencyTable) []string {
	var warnings []string
	if strategy != "" {
		if _, ok := costing.ParseStrategy(strategy); !ok {
			warnings = append(warnings, fmt.Sprintf("%s: unknown strategy %q will fall back to FixedMarkup", label, strategy))
		}
	}
	if rule != "" {
		if _, ok := rounding.ParseInterval(rule); !ok {
			warnings = append(warnings, fmt.Sprintf("%s: rounding rule %q is not a positive decimal", label, rule))
		}
	}
	if currency != "" {
		if _, ok := currencies.SuggestInterval(currency); !ok {
			warnings = append(warnings, fmt.Sprintf("%s: unknown currency %q", label, currency))
		}
	}
	return warnings
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// inherit returns the batch's own value when it is non-zero or was written
// in the batch file, and the common value otherwise.
func (b Batch) inherit(key string, own, common float64) float64 {
	if own != 0 || b.explicit[key] {
		return own
	}
	return common
}
