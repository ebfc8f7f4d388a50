package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"geokriging/pkg/config"
	"geokriging/pkg/estimation"
	"geokriging/pkg/kriging"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "geokrig.yaml", "Job configuration file")
	outputPath := flag.String("output", "", "Output CSV file (overrides output.file)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (overrides processing.numCores)")
	validate := flag.Bool("validate", false, "Run leave-one-out cross validation")
	initConfig := flag.Bool("init", false, "Write a default configuration file and exit")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outputPath != "" {
		cfg.Output.File = *outputPath
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}

	logger, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg, *validate, logger)
	stop()
	os.Exit(finish(logger, err))
}

// finish logs a failed run, flushes the logger and returns the exit code.
func finish(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("geokrig failed", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config, validate bool, logger *zap.Logger) error {
	model, err := cfg.Model()
	if err != nil {
		return fmt.Errorf("building model: %w", err)
	}
	solver, err := cfg.Solver()
	if err != nil {
		return err
	}
	table, err := cfg.Table()
	if err != nil {
		return fmt.Errorf("loading samples: %w", err)
	}
	grid, err := cfg.PredictionGrid()
	if err != nil {
		return err
	}

	est, err := estimation.NewEstimator(model, table, cfg.EstimationParams(),
		estimation.WithLogger(logger),
		estimation.WithFitOptions(kriging.WithSolver(solver)),
		estimation.WithProgress(printProgress),
	)
	if err != nil {
		return err
	}

	logger.Info("starting estimation",
		zap.Int("samples", table.Len()),
		zap.Strings("variables", table.Names()),
		zap.Int("targets", grid.Len()),
		zap.Stringer("solver", solver),
	)
	startTime := time.Now()
	results, err := est.Estimate(ctx, grid.Targets())
	if err != nil {
		return err
	}
	logger.Info("estimation completed", zap.Duration("elapsed", time.Since(startTime)))

	if err := writeResults(cfg.Output.File, grid, table.Names(), results); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	if validate {
		metrics, err := est.CrossValidate(ctx)
		if err != nil {
			return fmt.Errorf("cross validation: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\nCross validation (leave-one-out):\n")
		fmt.Fprintf(os.Stderr, "=================================\n")
		for _, m := range metrics {
			fmt.Fprintf(os.Stderr, "%-12s n=%-6d RMSE=%.6f ME=%.6f MSSE=%.3f\n", m.Variable, m.Count, m.RMSE, m.MeanError, m.MSSE)
		}
	}
	return nil
}

// printProgress shows the completed share of the targets on stderr.
func printProgress(completed, total int, message string) {
	if total == 0 {
		if message != "" {
			fmt.Fprintln(os.Stderr, message)
		}
		return
	}
	progress := float64(completed) / float64(total) * 100
	fmt.Fprintf(os.Stderr, "\rEstimating: %.1f%% complete", progress)
	if completed == total {
		fmt.Fprintln(os.Stderr)
	}
}
