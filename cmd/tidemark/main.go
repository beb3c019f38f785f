package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tidemark-io/tidemark/internal/pipeline"
	"github.com/tidemark-io/tidemark/pkg/config"
	"github.com/tidemark-io/tidemark/pkg/connector/registry"
	"github.com/tidemark-io/tidemark/pkg/hwm"
	"github.com/tidemark-io/tidemark/pkg/hwm/store"
	"github.com/tidemark-io/tidemark/pkg/logger"
	"github.com/tidemark-io/tidemark/pkg/observability"
	"github.com/tidemark-io/tidemark/pkg/reader"
	"github.com/tidemark-io/tidemark/pkg/strategy"

	// Import all available connectors to register them
	_ "github.com/tidemark-io/tidemark/pkg/connector/destinations/csv"
	_ "github.com/tidemark-io/tidemark/pkg/connector/destinations/jsonl"
	_ "github.com/tidemark-io/tidemark/pkg/connector/sources/mysql"
	_ "github.com/tidemark-io/tidemark/pkg/connector/sources/postgres"
)

var version = "0.1.0"

// runFlags contains the strategy selection for one pipeline run
type runFlags struct {
	strategy string
	step     string
	start    string
	stop     string
	offset   string
	timeout  time.Duration
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "tidemark",
		Short: "Tidemark - incremental data extraction with high-water-marks",
		Long: `Tidemark moves rows from databases to files incrementally. Each run
remembers how far it read through a persisted high-water-mark, so the
next run picks up exactly where the last successful one stopped.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tidemark v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Source Connectors:")
			for _, source := range registry.ListSources() {
				fmt.Printf("  - %s\n", source)
			}
			fmt.Println("\nAvailable Destination Connectors:")
			for _, dest := range registry.ListDestinations() {
				fmt.Printf("  - %s\n", dest)
			}
		},
	})

	var sourceConfigFile, destConfigFile string
	flags := &runFlags{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a data pipeline",
		Long: `Run a data pipeline with the specified source and destination
configurations. Configuration files are YAML with ${VAR} environment
substitution.

Example:
  tidemark run --source orders.yaml --destination out.yaml \
    --strategy incremental-batch --step 10000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(sourceConfigFile, destConfigFile, flags)
		},
	}

	runCmd.Flags().StringVarP(&sourceConfigFile, "source", "s", "", "Path to source configuration YAML file (required)")
	runCmd.Flags().StringVarP(&destConfigFile, "destination", "d", "", "Path to destination configuration YAML file (required)")
	_ = runCmd.MarkFlagRequired("source")
	_ = runCmd.MarkFlagRequired("destination")

	runCmd.Flags().StringVar(&flags.strategy, "strategy", "snapshot", "Read strategy: snapshot, incremental, snapshot-batch, incremental-batch")
	runCmd.Flags().StringVar(&flags.step, "step", "", "Span size for batch strategies: an integer (rows of the tracked column) or a duration (e.g. 24h)")
	runCmd.Flags().StringVar(&flags.start, "start", "", "Explicit lower boundary, overrides the stored mark")
	runCmd.Flags().StringVar(&flags.stop, "stop", "", "Explicit upper boundary, overrides MAX discovery")
	runCmd.Flags().StringVar(&flags.offset, "offset", "", "Re-read window behind the stored mark (integer or duration)")
	runCmd.Flags().DurationVar(&flags.timeout, "timeout", 30*time.Minute, "Pipeline timeout")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPipeline(sourceConfigFile, destConfigFile string, flags *runFlags) error {
	var sourceConfig, destConfig config.BaseConfig
	if err := config.Load(sourceConfigFile, &sourceConfig); err != nil {
		return fmt.Errorf("source configuration error: %w", err)
	}
	if err := config.Load(destConfigFile, &destConfig); err != nil {
		return fmt.Errorf("destination configuration error: %w", err)
	}

	logLevel := sourceConfig.Observability.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}
	if err := logger.Init(logger.Config{Level: logLevel, Encoding: "json"}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if sourceConfig.Observability.EnableTracing {
		if err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    "tidemark",
			ServiceVersion: version,
			Enabled:        true,
		}); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	log := logger.Get().With(
		zap.String("component", "tidemark-cli"),
		zap.String("source", sourceConfig.Type),
		zap.String("destination", destConfig.Type),
	)

	source, err := registry.CreateSource(sourceConfig.Type, &sourceConfig)
	if err != nil {
		return fmt.Errorf("failed to create source connector %q: %w", sourceConfig.Type, err)
	}
	destination, err := registry.CreateDestination(destConfig.Type, &destConfig)
	if err != nil {
		return fmt.Errorf("failed to create destination connector %q: %w", destConfig.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, logger.JobIDKey, sourceConfig.Name)

	if err := source.Initialize(ctx, &sourceConfig); err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	defer func() { _ = source.Close(context.Background()) }()

	if err := destination.Initialize(ctx, &destConfig); err != nil {
		return fmt.Errorf("failed to initialize destination: %w", err)
	}
	defer func() { _ = destination.Close(context.Background()) }()

	sessOpts := []strategy.SessionOption{}
	if sourceConfig.HWM.StorePath != "" {
		fileStore, err := store.NewFileStore(sourceConfig.HWM.StorePath)
		if err != nil {
			return fmt.Errorf("failed to open high-water-mark store: %w", err)
		}
		sessOpts = append(sessOpts, strategy.WithStore(fileStore))
	}
	sess := strategy.NewSession(sessOpts...)

	strat, err := buildStrategy(flags)
	if err != nil {
		return err
	}

	rdr, err := reader.New(source, reader.Config{
		Table:         sourceConfig.Connection.Table,
		Columns:       sourceConfig.Connection.Columns,
		HWMExpression: sourceConfig.HWM.Expression,
		HWMColumnType: sourceConfig.HWM.ColumnType,
		Process:       sourceConfig.HWM.Process,
		Filter:        sourceConfig.Connection.Filter,
	})
	if err != nil {
		return err
	}

	p, err := pipeline.New(rdr, destination, sess)
	if err != nil {
		return err
	}

	log.Info("starting pipeline",
		zap.String("strategy", flags.strategy),
		zap.String("table", sourceConfig.Connection.Table))

	if err := p.Run(ctx, strat); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	log.Info("pipeline finished", zap.Int64("rows_moved", p.RowsMoved()))
	return nil
}

// buildStrategy maps the CLI flags to a strategy instance
func buildStrategy(flags *runFlags) (strategy.Strategy, error) {
	var opts []strategy.Option
	if flags.start != "" {
		v, err := parseBoundary(flags.start)
		if err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
		opts = append(opts, strategy.WithStart(v))
	}
	if flags.stop != "" {
		v, err := parseBoundary(flags.stop)
		if err != nil {
			return nil, fmt.Errorf("invalid --stop: %w", err)
		}
		opts = append(opts, strategy.WithStop(v))
	}
	if flags.offset != "" {
		s, err := parseStep(flags.offset)
		if err != nil {
			return nil, fmt.Errorf("invalid --offset: %w", err)
		}
		opts = append(opts, strategy.WithOffset(s))
	}

	needStep := flags.strategy == "snapshot-batch" || flags.strategy == "incremental-batch"
	var step hwm.Step
	if needStep {
		if flags.step == "" {
			return nil, fmt.Errorf("strategy %q requires --step", flags.strategy)
		}
		var err error
		step, err = parseStep(flags.step)
		if err != nil {
			return nil, fmt.Errorf("invalid --step: %w", err)
		}
	}

	switch flags.strategy {
	case "snapshot":
		return strategy.NewSnapshot(), nil
	case "incremental":
		return strategy.NewIncremental(opts...), nil
	case "snapshot-batch":
		return strategy.NewSnapshotBatch(step, opts...), nil
	case "incremental-batch":
		return strategy.NewIncrementalBatch(step, opts...), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", flags.strategy)
	}
}

// parseBoundary interprets a boundary flag as an integer, a date or a
// timestamp, in that order
func parseBoundary(s string) (hwm.Value, error) {
	if v, err := hwm.ParseValue(hwm.KindInt, s); err == nil {
		return v, nil
	}
	if v, err := hwm.ParseValue(hwm.KindDate, s); err == nil {
		return v, nil
	}
	return hwm.ParseValue(hwm.KindTimestamp, s)
}

// parseStep interprets a step flag as a row count or a duration
func parseStep(s string) (hwm.Step, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return hwm.IntStep(n), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("step must be an integer or a duration: %w", err)
	}
	return hwm.DurationStep(d), nil
}
