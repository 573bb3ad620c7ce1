package migrate

import (
	"os"
	"strings"
	"testing"
)

func TestShippedMigrationsAreValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate shipped migrations: %v", err)
	}
}

// A fresh database bootstraps from exactly one schema baseline; a second
// one would abort goose up on the duplicate CREATE TABLE statements.
func TestShippedMigrationsHaveSingleBaseline(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	baselines := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_init_schema.sql") {
			baselines++
		}
	}
	if baselines != 1 {
		t.Fatalf("expected exactly one baseline migration, found %d", baselines)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/001_bad.sql", []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected filename error")
	}
}

func TestValidateDirRejectsMissingGooseHeaders(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/20260101000000_no_headers.sql", []byte("SELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected missing header error")
	}
}
