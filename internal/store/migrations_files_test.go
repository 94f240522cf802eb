package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	migrationsDir := filepath.Join("..", "..", "db", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version := match[1]
		direction := match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		if byVersion[version][direction] {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		byVersion[version][direction] = true
	}

	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}

	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

func TestUpMigrationsSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_reactions.up.sql":   {Data: []byte("SELECT 2")},
		"0001_init.up.sql":        {Data: []byte("SELECT 1")},
		"0001_init.down.sql":      {Data: []byte("SELECT 0")},
		"README.md":               {Data: []byte("notes")},
		"archive/0000_old.up.sql": {Data: []byte("SELECT -1")},
	}
	files, err := upMigrations(fsys)
	if err != nil {
		t.Fatalf("upMigrations: %v", err)
	}
	want := []string{"0001_init.up.sql", "0002_reactions.up.sql"}
	if len(files) != len(want) {
		t.Fatalf("upMigrations = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("upMigrations = %v, want %v", files, want)
		}
	}
}

func TestInitMigrationEnforcesSingleMessageTarget(t *testing.T) {
	sqlBytes, err := os.ReadFile(filepath.Join("..", "..", "db", "migrations", "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)
	for _, snippet := range []string{
		"CONSTRAINT messages_single_target",
		"idx_messages_channel_parent_conversation",
		"idx_notifications_user_status",
		"idx_saved_laters_member_message",
	} {
		if !strings.Contains(sqlText, snippet) {
			t.Fatalf("expected migration to contain %q", snippet)
		}
	}
}
