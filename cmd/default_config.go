package cmd

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simtrays/oversize-sim/sim"
)

// defaultRunConfig is the starter configuration written by `init`.
// It must satisfy sim.LoadRunConfig's strict parsing.
//
//go:embed defaults.yaml
var defaultRunConfig []byte

var (
	initOut   string // Destination of the starter config
	initForce bool   // Overwrite an existing file
)

// writeDefaultConfig writes the starter configuration to path and checks it
// loads and validates.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, defaultRunConfig, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	cfg, err := sim.LoadRunConfig(path)
	if err != nil {
		return err
	}
	return cfg.Validate()
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter run configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeDefaultConfig(initOut, initForce); err != nil {
			logrus.Fatalf("init: %v", err)
		}
		logrus.Infof("wrote %s", initOut)
	},
}

func init() {
	initCmd.Flags().StringVar(&initOut, "out", "run.yaml", "Destination path of the run configuration")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
