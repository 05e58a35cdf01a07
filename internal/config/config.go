package config

import (
	"os"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Logging
	LogFile  string
	LogLevel string

	// Inputs
	SeedPath    string
	CatalogPath string

	// Snapshot sinks, both optional
	SnapshotDB string
	ArchiveDir string

	// Simulated latency of the canned assistant
	ResponseDelay time.Duration
	ApprovalDelay time.Duration
	TaskDelay     time.Duration

	// Timeline ordering: "time-of-day" or "epoch"
	Ordering string

	// Name stamped on approvals
	CurrentUser string
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		LogFile:  getEnv("WSCHAT_LOG_FILE", ""),
		LogLevel: getEnv("WSCHAT_LOG_LEVEL", "info"),

		SeedPath:    getEnv("WSCHAT_SEED", ""),
		CatalogPath: getEnv("WSCHAT_CATALOG", ""),

		SnapshotDB: getEnv("WSCHAT_SNAPSHOT_DB", ""),
		ArchiveDir: getEnv("WSCHAT_ARCHIVE_DIR", ""),

		ResponseDelay: getDuration("WSCHAT_RESPONSE_DELAY", 1200*time.Millisecond),
		ApprovalDelay: getDuration("WSCHAT_APPROVAL_DELAY", time.Second),
		TaskDelay:     getDuration("WSCHAT_TASK_DELAY", 2*time.Second),

		Ordering:    strings.ToLower(getEnv("WSCHAT_ORDERING", "time-of-day")),
		CurrentUser: getEnv("WSCHAT_USER", "You"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}
