package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SeedYAML is a small seed file with one session and two inbox items
const SeedYAML = `sessions:
  - id: seed-1
    title: Homepage migration
    messages:
      - role: user
        content: Move the homepage
        timestamp: "9:00 AM"
      - role: assistant
        content: Drafting the plan now
        timestamp: "9:01 AM"
inbox:
  - id: item-1
    title: Publish homepage
    summary: The new homepage is ready to publish
    type: approval
    priority: high
    related_task_id: task-1
    related_task_name: Homepage migration
  - id: item-2
    title: Expected traffic
    summary: How many requests per second should the site handle?
    type: info-request
    priority: medium
`

// CatalogYAML is a catalog with one agent and one command
const CatalogYAML = `agents:
  - handle: seo
    name: SEO Agent
    description: Audits metadata
    type: content
    icon: content
    requires_approval: true
commands:
  - id: audit-links
    label: Audit Links
    description: Check every link
    icon: command
    tool: link_checker
`

// CreateSQLiteFixture creates a snapshot database file with sample data
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(SnapshotSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	InsertSessionRow(t, db, "s1", "Fixture session", "Hello back", "10:31 AM", 1000)
	InsertMessageRow(t, db, "s1", 0, "m1", `{"id":"m1","role":"user","content":"Hello","timestamp":"10:30 AM","seq":1}`)
	InsertMessageRow(t, db, "s1", 1, "m2", `{"id":"m2","role":"assistant","content":"Hello back","timestamp":"10:31 AM","seq":2}`)
}

// WriteFileFixture writes data to name under dir and returns the path
func WriteFileFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write fixture file: %v", err)
	}
	return path
}

// CreateSeedFixture writes SeedYAML to dir and returns the path
func CreateSeedFixture(t *testing.T, dir string) string {
	t.Helper()
	return WriteFileFixture(t, dir, "seed.yaml", []byte(SeedYAML))
}

// CreateCatalogFixture writes CatalogYAML to dir and returns the path
func CreateCatalogFixture(t *testing.T, dir string) string {
	t.Helper()
	return WriteFileFixture(t, dir, "catalog.yaml", []byte(CatalogYAML))
}
