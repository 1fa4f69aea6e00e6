package library

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	testStoreRoundTrip(t, fs)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestFileStoreMissingFilesLoadEmpty(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	items, err := fs.LoadItems()
	if err != nil || len(items) != 0 {
		t.Fatalf("want empty items, got %v, %v", items, err)
	}
	accounts, err := fs.LoadAccounts()
	if err != nil || len(accounts) != 0 {
		t.Fatalf("want empty accounts, got %v, %v", accounts, err)
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, itemsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs, _ := NewFileStore(dir)
	if _, err := NewEngine(fs); err == nil {
		t.Fatalf("expected engine construction to fail on a corrupt store")
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []string{StoreSQLite, StoreJSON, StoreMemory} {
		path := filepath.Join(dir, kind)
		if kind == StoreSQLite {
			path += ".db"
		}
		s, err := OpenStore(kind, path)
		if err != nil {
			t.Fatalf("open %s: %v", kind, err)
		}
		s.Close()
	}
	if _, err := OpenStore("postgres", dir); err == nil {
		t.Fatalf("expected unknown store kind to fail")
	}
}
