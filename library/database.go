package library

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Database is the SQLite-backed Store.
type Database struct {
	db *sqlx.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create db dir")
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return errors.Wrap(err, "enable WAL")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.Get(&current, `SELECT value FROM meta WHERE key='schema_version';`)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		// position keeps catalog order, which explicit ids may not follow.
		`CREATE TABLE IF NOT EXISTS items (
            position INTEGER PRIMARY KEY,
            id INTEGER NOT NULL UNIQUE,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            issued BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS accounts (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            username TEXT NOT NULL,
            secret TEXT NOT NULL,
            role TEXT NOT NULL
        );`,
		// item_id is deliberately not a foreign key: removed items may still be on loan.
		`CREATE TABLE IF NOT EXISTS loans (
            account_id INTEGER NOT NULL REFERENCES accounts(id),
            position INTEGER NOT NULL,
            item_id INTEGER NOT NULL,
            issue_date TEXT NOT NULL,
            due_date TEXT NOT NULL,
            PRIMARY KEY (account_id, position)
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return errors.Wrap(err, "apply migration")
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return errors.Wrap(err, "record schema version")
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemRow struct {
	Position int    `db:"position"`
	ID       int    `db:"id"`
	Title    string `db:"title"`
	Author   string `db:"author"`
	Genre    string `db:"genre"`
	Issued   bool   `db:"issued"`
}

// LoadItems returns the catalog in its saved order.
func (d *Database) LoadItems() ([]*Item, error) {
	items := []*Item{}
	if err := d.db.Select(&items, `SELECT id,title,author,genre,issued FROM items ORDER BY position`); err != nil {
		return nil, errors.Wrap(err, "load items")
	}
	return items, nil
}

// SaveItems replaces the stored catalog in one transaction.
func (d *Database) SaveItems(items []*Item) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "save items")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return errors.Wrap(err, "save items")
	}
	stmt, err := tx.PrepareNamed(`INSERT INTO items(position,id,title,author,genre,issued) VALUES(:position,:id,:title,:author,:genre,:issued)`)
	if err != nil {
		return errors.Wrap(err, "save items")
	}
	defer stmt.Close()
	for i, it := range items {
		row := itemRow{Position: i, ID: it.ID, Title: it.Title, Author: it.Author, Genre: it.Genre, Issued: it.Issued}
		if _, err := stmt.Exec(row); err != nil {
			return errors.Wrapf(err, "save item %d", it.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "save items")
}

// ---------------------------------------------------------------------------
// Accounts and loans
// ---------------------------------------------------------------------------

type accountRow struct {
	ID       int    `db:"id"`
	Name     string `db:"name"`
	Username string `db:"username"`
	Secret   string `db:"secret"`
	Role     string `db:"role"`
}

type loanRow struct {
	AccountID int    `db:"account_id"`
	Position  int    `db:"position"`
	ItemID    int    `db:"item_id"`
	IssueDate string `db:"issue_date"`
	DueDate   string `db:"due_date"`
}

// LoadAccounts returns all accounts with their loans in borrow order.
func (d *Database) LoadAccounts() ([]*Account, error) {
	var rows []accountRow
	if err := d.db.Select(&rows, `SELECT id,name,username,secret,role FROM accounts ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "load accounts")
	}
	var loans []loanRow
	if err := d.db.Select(&loans, `SELECT account_id,position,item_id,issue_date,due_date FROM loans ORDER BY account_id, position`); err != nil {
		return nil, errors.Wrap(err, "load loans")
	}

	accounts := make([]*Account, 0, len(rows))
	byID := make(map[int]*Account, len(rows))
	for _, r := range rows {
		a := &Account{ID: r.ID, Name: r.Name, Username: r.Username, Secret: r.Secret, Role: Role(r.Role), Loans: []Loan{}}
		accounts = append(accounts, a)
		byID[a.ID] = a
	}
	for _, lr := range loans {
		a, ok := byID[lr.AccountID]
		if !ok {
			continue
		}
		issued, err := time.Parse(dateLayout, lr.IssueDate)
		if err != nil {
			return nil, errors.Wrapf(err, "loan of account %d: issue date", lr.AccountID)
		}
		due, err := time.Parse(dateLayout, lr.DueDate)
		if err != nil {
			return nil, errors.Wrapf(err, "loan of account %d: due date", lr.AccountID)
		}
		a.Loans = append(a.Loans, Loan{ItemID: lr.ItemID, IssueDate: issued, DueDate: due})
	}
	return accounts, nil
}

// SaveAccounts replaces all accounts and their loans in one transaction.
func (d *Database) SaveAccounts(accounts []*Account) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "save accounts")
	}
	defer tx.Rollback()

	// Loans first: they reference accounts.
	for _, q := range []string{`DELETE FROM loans`, `DELETE FROM accounts`} {
		if _, err := tx.Exec(q); err != nil {
			return errors.Wrap(err, "save accounts")
		}
	}

	insAccount, err := tx.PrepareNamed(`INSERT INTO accounts(id,name,username,secret,role) VALUES(:id,:name,:username,:secret,:role)`)
	if err != nil {
		return errors.Wrap(err, "save accounts")
	}
	defer insAccount.Close()
	insLoan, err := tx.PrepareNamed(`INSERT INTO loans(account_id,position,item_id,issue_date,due_date) VALUES(:account_id,:position,:item_id,:issue_date,:due_date)`)
	if err != nil {
		return errors.Wrap(err, "save accounts")
	}
	defer insLoan.Close()

	for _, a := range accounts {
		row := accountRow{ID: a.ID, Name: a.Name, Username: a.Username, Secret: a.Secret, Role: string(a.Role)}
		if _, err := insAccount.Exec(row); err != nil {
			return errors.Wrapf(err, "save account %d", a.ID)
		}
		for i, l := range a.Loans {
			lr := loanRow{
				AccountID: a.ID,
				Position:  i,
				ItemID:    l.ItemID,
				IssueDate: formatDate(l.IssueDate),
				DueDate:   formatDate(l.DueDate),
			}
			if _, err := insLoan.Exec(lr); err != nil {
				return errors.Wrapf(err, "save loan of account %d", a.ID)
			}
		}
	}
	return errors.Wrap(tx.Commit(), "save accounts")
}
