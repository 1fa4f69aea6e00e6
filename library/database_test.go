package library

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleItems() []*Item {
	issued := NewItem(5, "Dune", "Herbert", "SciFi")
	issued.Issued = true
	return []*Item{
		issued,
		NewItem(2, "Emma", "Austen", "Classic"),
		NewItem(9, "Neuromancer", "Gibson", "SciFi"),
	}
}

func sampleAccounts() []*Account {
	day := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	admin := NewAccount(1, "Administrator", "admin", "admin123", RoleAdmin)
	alice := NewAccount(2, "Alice", "alice", "pa|ss 'quoted'", RoleUser)
	alice.AddLoan(5, day, 7)
	alice.AddLoan(42, day.AddDate(0, 0, 2), 7) // item no longer in the catalog
	return []*Account{admin, alice}
}

// testStoreRoundTrip saves both collections and checks they load back field for field.
func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()

	items, accounts := sampleItems(), sampleAccounts()
	if err := s.SaveItems(items); err != nil {
		t.Fatalf("save items: %v", err)
	}
	if err := s.SaveAccounts(accounts); err != nil {
		t.Fatalf("save accounts: %v", err)
	}

	gotItems, err := s.LoadItems()
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	if !reflect.DeepEqual(gotItems, items) {
		t.Fatalf("items round trip:\n got %v\nwant %v", gotItems, items)
	}

	gotAccounts, err := s.LoadAccounts()
	if err != nil {
		t.Fatalf("load accounts: %v", err)
	}
	if len(gotAccounts) != len(accounts) {
		t.Fatalf("want %d accounts, got %d", len(accounts), len(gotAccounts))
	}
	for i, want := range accounts {
		got := gotAccounts[i]
		if got.ID != want.ID || got.Name != want.Name || got.Username != want.Username ||
			got.Secret != want.Secret || got.Role != want.Role {
			t.Fatalf("account %d: got %+v, want %+v", i, got, want)
		}
		if len(got.Loans) != len(want.Loans) {
			t.Fatalf("account %d: want %d loans, got %d", want.ID, len(want.Loans), len(got.Loans))
		}
		for j, l := range want.Loans {
			g := got.Loans[j]
			if g.ItemID != l.ItemID || !g.IssueDate.Equal(l.IssueDate) || !g.DueDate.Equal(l.DueDate) {
				t.Fatalf("account %d loan %d: got %v, want %v", want.ID, j, g, l)
			}
		}
	}

	// A second save replaces, never appends.
	if err := s.SaveItems(items[:1]); err != nil {
		t.Fatalf("resave items: %v", err)
	}
	if gotItems, _ = s.LoadItems(); len(gotItems) != 1 {
		t.Fatalf("want 1 item after resave, got %d", len(gotItems))
	}
	accounts[1].Loans = accounts[1].Loans[:0]
	if err := s.SaveAccounts(accounts); err != nil {
		t.Fatalf("resave accounts: %v", err)
	}
	if gotAccounts, _ = s.LoadAccounts(); len(gotAccounts[1].Loans) != 0 {
		t.Fatalf("want no loans after resave, got %v", gotAccounts[1].Loans)
	}
}

func TestDatabaseRoundTrip(t *testing.T) {
	testStoreRoundTrip(t, tempDB(t))
}

func TestDatabaseStartsEmpty(t *testing.T) {
	db := tempDB(t)
	items, err := db.LoadItems()
	if err != nil {
		t.Fatalf("load items: %v", err)
	}
	accounts, err := db.LoadAccounts()
	if err != nil {
		t.Fatalf("load accounts: %v", err)
	}
	if len(items) != 0 || len(accounts) != 0 {
		t.Fatalf("fresh database not empty: %d items, %d accounts", len(items), len(accounts))
	}
}

func TestDatabaseReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lib.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e, err := NewEngine(db)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	userID, err := e.RegisterAccount("Alice", "alice", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	itemID, _ := e.AddItem(nil, "Dune", "Herbert", "SciFi")
	if _, err := e.BorrowItem(userID, itemID); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	e.Close()

	// Migrations must be a no-op the second time round.
	db, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	e, err = NewEngine(db)
	if err != nil {
		t.Fatalf("engine after reopen: %v", err)
	}
	defer e.Close()

	if n := len(e.Accounts()); n != 2 {
		t.Fatalf("want admin + alice, got %d accounts", n)
	}
	it, err := e.Item(itemID)
	if err != nil || !it.Issued {
		t.Fatalf("item should still be issued: %+v, %v", it, err)
	}
	if _, err := e.ReturnItem(userID, itemID); err != nil {
		t.Fatalf("return after reopen: %v", err)
	}
}
