package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	isolateEnv(t)
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: false,
		},
		{
			name:    "help flag",
			args:    []string{"--help"},
			wantErr: false,
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"chat", "export", "healthcheck", "inbox", "run", "sessions", "show"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestResolveConfig_FlagsOverrideEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("WSCHAT_SEED", "/env/seed.yaml")
	t.Setenv("WSCHAT_ARCHIVE_DIR", "/env/archive")

	resetFlags(rootCmd)
	require.NoError(t, rootCmd.ParseFlags([]string{"--seed", "/flag/seed.yaml"}))
	c := resolveConfig(rootCmd)

	assert.Equal(t, "/flag/seed.yaml", c.SeedPath)
	assert.Equal(t, "/env/archive", c.ArchiveDir)
	assert.Equal(t, time.Second, c.ResponseDelay)
	resetFlags(rootCmd)
}
