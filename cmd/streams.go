package cmd

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simtrays/oversize-sim/sim"
)

var (
	streamsConfigPath string // Run configuration to inspect
	streamsOutPath    string // Canonical output path override
)

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "Validate a run configuration and print its stream table",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runStreams(streamsConfigPath, streamsOutPath, os.Stdout); err != nil {
			logrus.Fatalf("streams: %v", err)
		}
	},
}

func runStreams(configPath, outPath string, w io.Writer) error {
	cfg, err := sim.LoadRunConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	table, err := cfg.StreamTable()
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = configRelative(configPath, cfg.Output.Path)
	}
	var paths []string
	if outPath != "" {
		paths = sim.StreamPaths(table, outPath, cfg.OutputExtension())
	}
	printStreamTable(w, table, paths)
	return nil
}

func init() {
	streamsCmd.Flags().StringVar(&streamsConfigPath, "config", "run.yaml", "Run configuration (YAML)")
	streamsCmd.Flags().StringVar(&streamsOutPath, "out", "", "Canonical output path; overrides output.path")
	rootCmd.AddCommand(streamsCmd)
}
