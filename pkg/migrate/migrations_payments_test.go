package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rinhapay/payment-router/pkg/migrate"
)

func TestPaymentsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_payments.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no payments migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payments",
		"correlation_id TEXT PRIMARY KEY",
		"amount NUMERIC(12,2) NOT NULL",
		"CHECK (strategy IN ('default', 'fallback'))",
		"CREATE INDEX IF NOT EXISTS idx_payments_requested_at ON payments (requested_at)",
		"DROP TABLE IF EXISTS payments",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsRepositoryMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("expected repository migrations to validate: %v", err)
	}
}

func TestCreateSQLMigrationThenValidate(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Payment Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_payment_index.sql") {
		t.Fatalf("unexpected sanitized filename %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}

	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected name without usable characters to fail")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_payments.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected filename without version to be rejected")
	}
}

func TestParseCommand(t *testing.T) {
	for _, value := range []string{"up", "down", "status", "version"} {
		cmd, err := migrate.ParseCommand(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if !cmd.RequiresDB() {
			t.Fatalf("%q should require a database", value)
		}
	}
	for _, value := range []string{"create", "validate"} {
		cmd, err := migrate.ParseCommand(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if cmd.RequiresDB() {
			t.Fatalf("%q should not require a database", value)
		}
	}
	if _, err := migrate.ParseCommand("redo"); err == nil {
		t.Fatal("expected unknown command to fail")
	}
}

func TestRunRequiresDatabase(t *testing.T) {
	if err := migrate.Run(context.Background(), nil, "migrations", migrate.CommandUp); err == nil {
		t.Fatal("expected nil db to be rejected")
	}
}

func TestMigrateToVersionRejectsBadVersion(t *testing.T) {
	if err := migrate.MigrateToVersion(context.Background(), nil, "migrations", "latest"); err == nil {
		t.Fatal("expected non-numeric version to fail")
	}
}

func TestCreateSQLMigrationBumpsPastNewestVersion(t *testing.T) {
	dir := t.TempDir()
	future := "29990101000000_later.sql"
	if err := os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	path, err := migrate.CreateSQLMigration(dir, "next")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if got := filepath.Base(path); got != "29990101000001_next.sql" {
		t.Fatalf("expected version after the newest file, got %q", got)
	}
}

func TestValidateDirChecksAnnotations(t *testing.T) {
	cases := map[string]string{
		"down before up": "-- +goose Down\n-- +goose Up\n",
		"missing down":   "-- +goose Up\nSELECT 1;\n",
		"unterminated":   "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"stray end":      "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n",
		"duplicated up":  "-- +goose Up\n-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "20260101000000_case.sql"), []byte(body), 0o644); err != nil {
				t.Fatalf("write file: %v", err)
			}
			if err := migrate.ValidateDir(dir); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20260101000000_a.sql", "20260101000000_b.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected duplicate versions to be rejected")
	}
}
