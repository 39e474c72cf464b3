package database

import (
	"sort"
	"testing"
)

func TestConfigURL(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "app", Password: "p@ss word", DBName: "letsmeet", SSLMode: "disable"}

	got := cfg.URL("pgx5")
	want := "pgx5://app:p%40ss%20word@db:5432/letsmeet?sslmode=disable"
	if got != want {
		t.Fatalf("URL() = %q, want %q", got, want)
	}
}

func TestMigrateSQLite_CreatesTablesAndIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(MemoryPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := MigrateSQLite(db); err != nil {
			t.Fatalf("MigrateSQLite run %d: %v", i+1, err)
		}
	}

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	want := []string{"availabilities", "events", "schema_migrations"}
	if len(names) != len(want) {
		t.Fatalf("tables = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("tables = %v, want %v", names, want)
		}
	}
}
