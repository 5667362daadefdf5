package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simtrays/oversize-sim/sim/ledger"
)

var (
	ledgerDBPath string // SQLite ledger path
	ledgerRunID  string // Run to summarize; empty uses the latest
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the classification ledger",
}

var ledgerRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runLedgerRuns(cmd.Context(), ledgerDBPath, os.Stdout); err != nil {
			logrus.Fatalf("ledger runs: %v", err)
		}
	},
}

var ledgerSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print per-stream event counts of a run",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runLedgerSummary(cmd.Context(), ledgerDBPath, ledgerRunID, os.Stdout); err != nil {
			logrus.Fatalf("ledger summary: %v", err)
		}
	},
}

// openExistingLedger opens a ledger for reading. Unlike ledger.Open it
// refuses to create a database that does not exist yet.
func openExistingLedger(dbPath string) (*ledger.Ledger, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ledger %s does not exist", dbPath)
		}
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	return ledger.Open(dbPath)
}

func runLedgerRuns(ctx context.Context, dbPath string, w io.Writer) error {
	l, err := openExistingLedger(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()
	runs, err := l.Runs(ctx)
	if err != nil {
		return err
	}
	printLedgerRuns(w, runs)
	return nil
}

func runLedgerSummary(ctx context.Context, dbPath, runID string, w io.Writer) error {
	l, err := openExistingLedger(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()
	if runID == "" {
		if runID, err = l.LatestRunID(ctx); err != nil {
			return err
		}
	}
	counts, err := l.StreamCounts(ctx, runID)
	if err != nil {
		return err
	}
	printLedgerStreams(w, runID, counts)
	return nil
}

func init() {
	ledgerCmd.PersistentFlags().StringVar(&ledgerDBPath, "db", "ledger.db", "SQLite ledger path")
	ledgerSummaryCmd.Flags().StringVar(&ledgerRunID, "run", "", "Run id (default: latest run)")
	ledgerCmd.AddCommand(ledgerRunsCmd, ledgerSummaryCmd)
	rootCmd.AddCommand(ledgerCmd)
}
