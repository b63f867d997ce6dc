package db

import (
	"path/filepath"
	"testing"
)

func TestConnectSQLiteMemory(t *testing.T) {
	gdb, err := ConnectSQLite(":memory:")
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	for _, m := range AllModels() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}
}

func TestConnectSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.db")
	gdb, err := ConnectSQLite(path)
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
}

func TestMySQLDSN(t *testing.T) {
	got := MySQLDSN("parley", "", "127.0.0.1", 3306, "parley")
	want := "parley@tcp(127.0.0.1:3306)/parley?parseTime=true"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}

	got = MySQLDSN("parley", "hunter2", "db.local", 3307, "prod")
	want = "parley:hunter2@tcp(db.local:3307)/prod?parseTime=true"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
