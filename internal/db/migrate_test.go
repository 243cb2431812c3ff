package db

import (
	"testing"

	"github.com/diewo77/solodesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrateIdempotent(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file:migrate_idem?mode=memory&cache=shared"), GormConfig(false))
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(d); err != nil {
		t.Fatal(err)
	}
	if err := Migrate(d); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	for _, m := range models.All() {
		if !d.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}
	if !d.Migrator().HasIndex(&models.Client{}, "idx_client_owner_email") {
		t.Error("missing client owner/email unique index")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected up and down migrations, got %d files", len(entries))
	}
}
