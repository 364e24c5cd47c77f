package main

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// execute runs the root command with args against a config path that does
// not exist, so any command that gets past its own checks fails reading it.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("ECOTERMO_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.toml"))

	for _, c := range []*cobra.Command{assetClearCmd, historyDeleteCmd, historyRestoreCmd} {
		if err := c.Flags().Set("yes", "false"); err != nil {
			t.Fatalf("resetting --yes on %s: %v", c.Name(), err)
		}
	}
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestDestructiveCommandsRequireYes(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"asset clear", []string{"asset", "clear"}},
		{"history delete", []string{"history", "delete", "snap-1"}},
		{"history restore", []string{"history", "restore", "snap-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), "requires --yes") {
				t.Errorf("Execute(%v) error = %v, want refusal without --yes", tt.args, err)
			}

			err = execute(t, append(tt.args, "--yes")...)
			if err == nil {
				t.Fatalf("Execute(%v --yes) succeeded without a config", tt.args)
			}
			if strings.Contains(err.Error(), "requires --yes") {
				t.Errorf("Execute(%v --yes) error = %v, want it to get past confirmation", tt.args, err)
			}
			if !strings.Contains(err.Error(), "reading config") {
				t.Errorf("Execute(%v --yes) error = %v, want config read failure", tt.args, err)
			}
		})
	}
}
