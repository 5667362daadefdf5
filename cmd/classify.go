package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simtrays/oversize-sim/sim"
	"github.com/simtrays/oversize-sim/sim/events"
	"github.com/simtrays/oversize-sim/sim/ledger"
	"github.com/simtrays/oversize-sim/sim/pipeline"
	"github.com/simtrays/oversize-sim/sim/report"
	"github.com/simtrays/oversize-sim/sim/router"
	"github.com/simtrays/oversize-sim/sim/trace"
)

// classifyOptions carries the classify flags. Zero values mean "use the
// run configuration".
type classifyOptions struct {
	ConfigPath  string
	SensorsPath string
	EventsPath  string // "-" reads stdin
	OutPath     string
	Workers     int
	LedgerPath  string
	PlotsDir    string
	TraceLevel  string
	Annotate    bool
}

var classifyOpts classifyOptions

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify events and write them to per-stream outputs",
	Run: func(cmd *cobra.Command, args []string) {
		opts := classifyOpts
		if !cmd.Flags().Changed("workers") {
			opts.Workers = -1
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runClassify(ctx, opts, os.Stdout); err != nil {
			logrus.Fatalf("classify: %v", err)
		}
	},
}

// resolveRunConfig loads the run configuration and applies flag overrides.
// Relative sensor and output paths in the file are resolved against the
// file's directory; flag paths are used as given.
func resolveRunConfig(opts classifyOptions) (*sim.RunConfig, string, error) {
	cfg, err := sim.LoadRunConfig(opts.ConfigPath)
	if err != nil {
		return nil, "", err
	}
	sensors := opts.SensorsPath
	if sensors == "" {
		if cfg.Sensors == "" {
			return nil, "", &sim.ConfigError{Field: "sensors", Err: fmt.Errorf("no sensor geometry given (set sensors or --sensors)")}
		}
		sensors = configRelative(opts.ConfigPath, cfg.Sensors)
	}
	if opts.OutPath != "" {
		cfg.Output.Path = opts.OutPath
	} else {
		cfg.Output.Path = configRelative(opts.ConfigPath, cfg.Output.Path)
	}
	if opts.Workers >= 0 {
		cfg.Workers = opts.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, sensors, nil
}

// configRelative anchors a relative path from the config file at the
// file's directory.
func configRelative(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func runClassify(ctx context.Context, opts classifyOptions, stdout io.Writer) error {
	if !trace.IsValidTraceLevel(opts.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, decisions", opts.TraceLevel)
	}
	cfg, sensorsPath, err := resolveRunConfig(opts)
	if err != nil {
		return err
	}
	positions, err := sim.LoadSensorPositions(sensorsPath)
	if err != nil {
		return err
	}
	clf, err := sim.NewClassifierFromConfig(cfg, positions)
	if err != nil {
		return err
	}
	table := clf.Table()
	logrus.Infof("Classifying with %d sensors and %d streams (selection=%s, containment=%v)",
		clf.Sensors().Len(), table.Len(), selectionName(cfg.Streams.Selection), cfg.Containment.Check)
	for _, def := range table.Definitions() {
		logrus.Infof("  %s", def)
	}

	in := io.Reader(os.Stdin)
	if opts.EventsPath != "-" {
		f, err := os.Open(opts.EventsPath)
		if err != nil {
			return fmt.Errorf("opening events: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	rt, err := router.NewFileRouter(table, router.Options{
		Path:      cfg.Output.Path,
		Extension: cfg.OutputExtension(),
		Discard:   cfg.Output.Discard,
		Annotate:  opts.Annotate,
	})
	if err != nil {
		return err
	}

	var observers []pipeline.Observer
	var tr *trace.ClassificationTrace
	if trace.TraceLevel(opts.TraceLevel) == trace.TraceLevelDecisions {
		tr = trace.NewClassificationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
		observers = append(observers, &pipeline.TraceObserver{Table: table, Trace: tr})
	}
	var collector *report.Collector
	if opts.PlotsDir != "" {
		collector = report.NewCollector(table, clf.ReferenceDistances())
		observers = append(observers, collector)
	}
	var run *ledger.Run
	if opts.LedgerPath != "" {
		l, err := ledger.Open(opts.LedgerPath)
		if err != nil {
			_ = rt.Close()
			return err
		}
		defer func() { _ = l.Close() }()
		run, err = l.StartRun(ctx, ledger.RunInfo{
			ConfigPath:  opts.ConfigPath,
			SensorCount: clf.Sensors().Len(),
			Selection:   cfg.Streams.Selection,
			Table:       table,
			OutputPaths: rt.Paths(),
		})
		if err != nil {
			_ = rt.Close()
			return err
		}
		observers = append(observers, run)
	}

	start := time.Now()
	stats, runErr := pipeline.Run(ctx, clf, events.NewReader(in), rt, pipeline.Config{Workers: cfg.Workers}, observers...)
	if err := rt.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		if run != nil {
			if err := run.Fail(runErr); err != nil {
				logrus.Errorf("ledger: %v", err)
			}
		}
		return runErr
	}
	if run != nil {
		if err := run.Finish(); err != nil {
			return err
		}
	}
	logrus.Infof("Classified %d events in %s", stats.Events, time.Since(start).Round(time.Millisecond))

	printRunSummary(stdout, table, rt.Paths(), stats)
	if tr != nil {
		printTraceSummary(stdout, trace.Summarize(tr))
	}
	if collector != nil {
		if _, err := collector.WritePlots(opts.PlotsDir); err != nil {
			return err
		}
	}
	return nil
}

func selectionName(name string) string {
	if name == "" {
		return "min-oversize"
	}
	return name
}

func init() {
	classifyCmd.Flags().StringVar(&classifyOpts.ConfigPath, "config", "run.yaml", "Run configuration (YAML)")
	classifyCmd.Flags().StringVar(&classifyOpts.SensorsPath, "sensors", "", "Sensor geometry (YAML); overrides the config's sensors")
	classifyCmd.Flags().StringVar(&classifyOpts.EventsPath, "events", "-", "Event input (JSON Lines); - reads stdin")
	classifyCmd.Flags().StringVar(&classifyOpts.OutPath, "out", "", "Canonical output path; overrides output.path")
	classifyCmd.Flags().IntVar(&classifyOpts.Workers, "workers", 0, "Classification workers (0 = one per CPU); overrides workers")
	classifyCmd.Flags().StringVar(&classifyOpts.LedgerPath, "ledger", "", "Record the run in this SQLite ledger")
	classifyCmd.Flags().StringVar(&classifyOpts.PlotsDir, "plots", "", "Write diagnostic plots to this directory")
	classifyCmd.Flags().StringVar(&classifyOpts.TraceLevel, "trace-level", "none", "Decision trace level (none, decisions)")
	classifyCmd.Flags().BoolVar(&classifyOpts.Annotate, "annotate", false, "Wrap output records with stream and diagnostics")
	rootCmd.AddCommand(classifyCmd)
}
