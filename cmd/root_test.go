package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	// GIVEN the root command
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	// THEN every subcommand is attached
	for _, want := range []string{"classify", "streams", "ledger", "init"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log"))
}

func TestClassifyCmd_FlagDefaults(t *testing.T) {
	flags := classifyCmd.Flags()
	assert.Equal(t, "-", flags.Lookup("events").DefValue)
	assert.Equal(t, "none", flags.Lookup("trace-level").DefValue)
	assert.Equal(t, "0", flags.Lookup("workers").DefValue)
}
