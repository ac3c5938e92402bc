package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iwvelando/batch-cost/internal/cache"
	"github.com/iwvelando/batch-cost/internal/config"
	"github.com/iwvelando/batch-cost/internal/costing"
	"github.com/iwvelando/batch-cost/internal/optimizer"
	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/iwvelando/batch-cost/pkg/output"
	"github.com/iwvelando/batch-cost/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to batch file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	optimize := flag.Bool("optimize", false, "search for the smallest markup meeting each batch's optimizer goal")
	flag.Parse()

	// Load the batch file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	engine := costing.NewEngine(logger, conf.Engine.ToEngineConfig())
	calc := cache.New(engine, time.Duration(constants.DefaultCacheTTLSeconds)*time.Second, logger)
	solver, err := optimizer.NewSolver(logger, engine)
	if err != nil {
		logger.Fatal("failed to initialize optimizer",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	var reports []output.Report
	failures := 0
	for _, batch := range conf.ActiveBatches() {
		req := batch.ToRequest(conf.Common)
		report := output.Report{Currency: req.Currency}

		if *optimize && batch.Optimizer != nil {
			solution, err := solver.Solve(req, *batch.Optimizer)
			if err != nil {
				failures++
				logger.Error("failed to optimize batch",
					zap.String("op", "main"),
					zap.String("batch", req.Name),
					zap.Error(err),
				)
				continue
			}
			report.Result = solution.Result
			summary := solution.Summary
			report.Optimization = &summary
		} else {
			result, err := calc.Calculate(req)
			if err != nil {
				failures++
				logger.Error("failed to price batch",
					zap.String("op", "main"),
					zap.String("batch", req.Name),
					zap.Error(err),
				)
				continue
			}
			report.Result = result
		}

		reports = append(reports, report)
	}

	if err := output.Write(os.Stdout, outputFormat, reports); err != nil {
		logger.Fatal("failed to write output",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if failures > 0 {
		_ = logger.Sync()
		os.Exit(2)
	}
}
