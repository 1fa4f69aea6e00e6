package main

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"lending-desk/library"

	"go.uber.org/zap"
)

func TestImportItems(t *testing.T) {
	engine, err := library.NewEngine(library.NewMemoryStore())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	input := `title,author,genre,id
Dune,Frank Herbert,SciFi,
Emma,Jane Austen,Classic,10
Again,Someone,Dup,10
Broken,row
Ulysses,James Joyce,Classic,x
Neuromancer,William Gibson,Cyberpunk
`
	ok, failed := importItems(csv.NewReader(strings.NewReader(input)), engine)
	if ok != 3 || failed != 3 {
		t.Fatalf("want 3 imported and 3 failed, got %d and %d", ok, failed)
	}

	items := engine.Items()
	wantIDs := []int{1, 10, 11}
	if len(items) != len(wantIDs) {
		t.Fatalf("want %d items in the catalog, got %d", len(wantIDs), len(items))
	}
	for i, it := range items {
		if it.ID != wantIDs[i] {
			t.Fatalf("item %d: want id %d, got %d", i, wantIDs[i], it.ID)
		}
	}
}

func TestRunReturnsErrorForMissingCSV(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "library.db")
	if err := run(library.StoreSQLite, dbPath, filepath.Join(dir, "missing.csv"), zap.NewNop()); err == nil {
		t.Fatalf("expected an error for a missing csv file")
	}

	// The failed run still saved the bootstrap admin before giving up.
	db, err := library.NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	accounts, err := db.LoadAccounts()
	if err != nil || len(accounts) != 1 {
		t.Fatalf("want the bootstrapped admin, got %v, %v", accounts, err)
	}
}
