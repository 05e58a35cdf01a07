package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/workspace-chat/testutil"
)

func TestHealthcheckCommandExists(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "healthcheck" {
			found = true
			if cmd.Flag("details") == nil {
				t.Error("healthcheck command should have --details flag")
			}
			break
		}
	}

	if !found {
		t.Error("healthcheck command not found in root command")
	}
}

func TestHealthcheckCommand(t *testing.T) {
	isolateEnv(t)
	dir := testutil.CreateTempDir(t)
	seed := testutil.CreateSeedFixture(t, dir)
	catalog := testutil.CreateCatalogFixture(t, dir)
	dbPath := filepath.Join(dir, "chat.db")
	testutil.CreateSQLiteFixture(t, dbPath)
	badSeed := testutil.WriteFileFixture(t, dir, "bad.yaml", []byte("sessions: [\n"))
	badIndex := filepath.Join(dir, "broken-archive")
	testutil.WriteFileFixture(t, badIndex, "sessions.yaml", []byte("sessions: {{\n"))

	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		contains []string
	}{
		{
			name:     "nothing configured",
			args:     []string{"healthcheck"},
			contains: []string{"Using built-in catalog (5 agents, 5 commands)", "No seed configured", "Health check passed!"},
		},
		{
			name: "everything configured",
			args: []string{"healthcheck", "--details", "--seed", seed, "--catalog", catalog, "--snapshot-db", dbPath, "--archive-dir", filepath.Join(dir, "archive")},
			contains: []string{
				"Catalog loaded (1 agents, 1 commands)",
				"Seed loaded (1 sessions, 2 inbox items)",
				"Snapshot database readable (1 sessions)",
				"Archive is empty",
				"Database: " + dbPath,
			},
		},
		{
			name:     "broken seed",
			args:     []string{"healthcheck", "--seed", badSeed},
			wantErr:  true,
			contains: []string{"Seed is unusable", "Health check failed"},
		},
		{
			name:     "broken archive index",
			args:     []string{"healthcheck", "--archive-dir", badIndex},
			wantErr:  true,
			contains: []string{"Archive index is unreadable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("healthcheck error = %v, wantErr %v\n%s", err, tt.wantErr, out)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}
