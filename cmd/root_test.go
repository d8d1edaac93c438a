//go:build !integration

package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"directory", "reconcile", "staffing", "pos", "runs", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "hospital-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestReconcileCommand_RequiredFlags(t *testing.T) {
	for _, name := range []string{"dataset", "input"} {
		f := reconcileCmd.Flags().Lookup(name)
		require.NotNil(t, f, "reconcile should have --%s", name)
		assert.Equal(t, []string{"true"}, f.Annotations[cobra.BashCompOneRequiredFlag])
	}
	assert.NotNil(t, reconcileCmd.Flags().Lookup("explain"))
	assert.NotNil(t, reconcileCmd.Flags().Lookup("workers"))
}

func TestCommandFlagDefaults(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		flag string
		want string
	}{
		{staffingCmd, "limit", "0"},
		{staffingCmd, "pdf", ""},
		{posCmd, "output", "pos_hospitals.csv"},
		{runsCmd, "limit", "50"},
		{serveCmd, "port", "0"},
		{directoryCmd, "file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Name()+"/"+tt.flag, func(t *testing.T) {
			f := tt.cmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.DefValue)
		})
	}
}
