package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunRejectsNonPositiveLendingRules(t *testing.T) {
	dir := t.TempDir()
	for _, opts := range []options{
		{loanDays: 0, finePerDay: 10},
		{loanDays: -1, finePerDay: 10},
		{loanDays: 7, finePerDay: 0},
		{loanDays: 7, finePerDay: -5},
	} {
		opts.store = "sqlite"
		opts.db = filepath.Join(dir, "library.db")
		opts.logLevel = "warn"
		if err := run(opts); err == nil {
			t.Fatalf("loan days %d, fine %d: expected an error", opts.loanDays, opts.finePerDay)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "library.db")); !os.IsNotExist(err) {
		t.Fatalf("rejected flags must not create the database, stat: %v", err)
	}
}
