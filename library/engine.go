package library

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PersistPolicy decides what a failed snapshot save does to the operation
// that triggered it.
type PersistPolicy int

const (
	// PersistLogAndContinue logs the failure and reports the operation as successful.
	PersistLogAndContinue PersistPolicy = iota
	// PersistFailFast returns a *PersistenceError. The mutation stays applied in memory.
	PersistFailFast
)

// Config holds the lending rules and bootstrap credentials.
type Config struct {
	LoanDays   int
	FinePerDay int

	AdminName     string
	AdminUsername string
	AdminSecret   string

	Persist PersistPolicy
}

// DefaultConfig returns a 7 day loan period, a fine of 10 per day late and
// the admin/admin123 bootstrap account.
func DefaultConfig() Config {
	return Config{
		LoanDays:      7,
		FinePerDay:    10,
		AdminName:     "Administrator",
		AdminUsername: "admin",
		AdminSecret:   "admin123",
		Persist:       PersistLogAndContinue,
	}
}

// Option configures an Engine.
type Option func(*Engine)

func WithConfig(cfg Config) Option { return func(e *Engine) { e.cfg = cfg } }

func WithLogger(log *zap.Logger) Option { return func(e *Engine) { e.log = log } }

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// Engine owns the catalog and the accounts. Every operation runs under one
// lock, so no two operations ever interleave.
type Engine struct {
	mu       sync.Mutex
	items    []*Item
	accounts []*Account

	store Store
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

// NewEngine loads both collections from store and makes sure an admin exists.
func NewEngine(store Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store: store,
		cfg:   DefaultConfig(),
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.LoanDays <= 0 || e.cfg.FinePerDay <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "loan days %d and fine per day %d must be positive",
			e.cfg.LoanDays, e.cfg.FinePerDay)
	}

	items, err := store.LoadItems()
	if err != nil {
		return nil, err
	}
	accounts, err := store.LoadAccounts()
	if err != nil {
		return nil, err
	}
	e.items, e.accounts = items, accounts

	if err := e.bootstrapAdmin(); err != nil {
		return nil, err
	}
	e.log.Info("engine ready", zap.Int("items", len(e.items)), zap.Int("accounts", len(e.accounts)))
	return e, nil
}

// Close closes the underlying store.
func (e *Engine) Close() error { return e.store.Close() }

func (e *Engine) bootstrapAdmin() error {
	for _, a := range e.accounts {
		if a.Role == RoleAdmin {
			return nil
		}
	}
	// Usernames stay unique: an existing user holding the admin name blocks the bootstrap.
	for _, a := range e.accounts {
		if strings.EqualFold(a.Username, e.cfg.AdminUsername) {
			e.log.Warn("default admin not created, username taken",
				zap.Int("account_id", a.ID), zap.String("username", a.Username))
			return nil
		}
	}
	admin := NewAccount(e.nextAccountID(), e.cfg.AdminName, e.cfg.AdminUsername, e.cfg.AdminSecret, RoleAdmin)
	e.accounts = append(e.accounts, admin)
	e.log.Info("created default admin", zap.Int("account_id", admin.ID), zap.String("username", admin.Username))
	return e.saveAccounts()
}

// ------------------ Accounts ------------------

// RegisterAccount creates a user account and returns its id.
func (e *Engine) RegisterAccount(name, username, secret string) (int, error) {
	name, username = strings.TrimSpace(name), strings.TrimSpace(username)
	if name == "" || username == "" || secret == "" {
		return 0, errors.Wrap(ErrInvalidInput, "name, username and secret are required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.accounts {
		if strings.EqualFold(a.Username, username) {
			return 0, errors.Wrapf(ErrDuplicateUsername, "%q", username)
		}
	}
	acct := NewAccount(e.nextAccountID(), name, username, secret, RoleUser)
	e.accounts = append(e.accounts, acct)
	e.log.Info("account registered", zap.Int("account_id", acct.ID), zap.String("username", acct.Username))
	return acct.ID, e.saveAccounts()
}

// Authenticate looks up the account with exactly this username and secret.
func (e *Engine) Authenticate(username, secret string) (AccountView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.accounts {
		if a.Username == username && a.Secret == secret {
			return viewOf(a), true
		}
	}
	return AccountView{}, false
}

// Account returns a fresh view of the account with id.
func (e *Engine) Account(id int) (AccountView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.accountByID(id)
	if a == nil {
		return AccountView{}, errors.Wrapf(ErrAccountNotFound, "account %d", id)
	}
	return viewOf(a), nil
}

// Accounts returns views of all accounts sorted by id.
func (e *Engine) Accounts() []AccountView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]AccountView, 0, len(e.accounts))
	for _, a := range e.accounts {
		views = append(views, viewOf(a))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// ------------------ Catalog ------------------

// AddItem adds an item to the catalog. A nil id takes the next free one.
func (e *Engine) AddItem(id *int, title, author, genre string) (int, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(author) == "" || strings.TrimSpace(genre) == "" {
		return 0, errors.Wrap(ErrInvalidInput, "title, author and genre are required")
	}
	if id != nil && *id <= 0 {
		return 0, errors.Wrapf(ErrInvalidInput, "item id %d must be positive", *id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var itemID int
	if id == nil {
		itemID = e.nextItemID()
	} else {
		itemID = *id
		if e.itemByID(itemID) != nil {
			return 0, errors.Wrapf(ErrDuplicateID, "item %d", itemID)
		}
	}

	e.items = append(e.items, NewItem(itemID, title, author, genre))
	e.log.Info("item added", zap.Int("item_id", itemID))
	return itemID, e.saveItems()
}

// RemoveItem deletes the item even if it is on loan. Such loans are kept and
// render with an unknown title.
func (e *Engine) RemoveItem(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, it := range e.items {
		if it.ID == id {
			e.items = append(e.items[:i], e.items[i+1:]...)
			e.log.Info("item removed", zap.Int("item_id", id), zap.Bool("was_issued", it.Issued))
			return e.saveItems()
		}
	}
	return errors.Wrapf(ErrNotFound, "item %d", id)
}

// Item returns a copy of the item with id.
func (e *Engine) Item(id int) (Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it := e.itemByID(id)
	if it == nil {
		return Item{}, errors.Wrapf(ErrNotFound, "item %d", id)
	}
	return *it, nil
}

// Items returns copies of the catalog in catalog order.
func (e *Engine) Items() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Item, 0, len(e.items))
	for _, it := range e.items {
		out = append(out, *it)
	}
	return out
}

// ------------------ Circulation ------------------

// BorrowReceipt describes a completed borrow.
type BorrowReceipt struct {
	ItemID    int
	Title     string
	IssueDate time.Time
	DueDate   time.Time
}

func (r BorrowReceipt) String() string {
	return fmt.Sprintf("Borrowed: %s | Due: %s", r.Title, formatDate(r.DueDate))
}

// BorrowItem lends itemID to the account.
func (e *Engine) BorrowItem(accountID, itemID int) (BorrowReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acct := e.accountByID(accountID)
	if acct == nil {
		return BorrowReceipt{}, errors.Wrapf(ErrAccountNotFound, "account %d", accountID)
	}
	it := e.itemByID(itemID)
	if it == nil {
		return BorrowReceipt{}, errors.Wrapf(ErrNotFound, "item %d", itemID)
	}
	if it.Issued {
		return BorrowReceipt{}, errors.Wrapf(ErrAlreadyIssued, "item %d", itemID)
	}

	it.Issued = true
	loan := acct.AddLoan(itemID, e.now(), e.cfg.LoanDays)
	e.log.Info("item borrowed",
		zap.Int("item_id", itemID),
		zap.Int("account_id", accountID),
		zap.String("due", formatDate(loan.DueDate)))

	r := BorrowReceipt{ItemID: itemID, Title: it.Title, IssueDate: loan.IssueDate, DueDate: loan.DueDate}
	return r, e.saveBoth()
}

// ReturnReceipt describes a completed return.
type ReturnReceipt struct {
	ItemID   int
	Title    string
	DueDate  time.Time
	Returned time.Time
	DaysLate int
	Fine     int
}

// OnTime reports whether no fine was charged.
func (r ReturnReceipt) OnTime() bool { return r.DaysLate <= 0 }

func (r ReturnReceipt) String() string {
	if r.OnTime() {
		return "Returned on time. No fine."
	}
	return fmt.Sprintf("Returned late by %d day(s). Fine = %d", r.DaysLate, r.Fine)
}

// ReturnItem ends the account's loan of itemID and computes the fine.
func (e *Engine) ReturnItem(accountID, itemID int) (ReturnReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acct := e.accountByID(accountID)
	if acct == nil {
		return ReturnReceipt{}, errors.Wrapf(ErrAccountNotFound, "account %d", accountID)
	}
	it := e.itemByID(itemID)
	if it == nil {
		return ReturnReceipt{}, errors.Wrapf(ErrNotFound, "item %d", itemID)
	}
	if !it.Issued {
		return ReturnReceipt{}, errors.Wrapf(ErrNotIssued, "item %d", itemID)
	}
	if !acct.HasLoan(itemID) {
		return ReturnReceipt{}, errors.Wrapf(ErrNoSuchLoan, "account %d, item %d", accountID, itemID)
	}
	loan, _ := acct.RemoveLoan(itemID)
	it.Issued = false

	today := civilDate(e.now())
	r := ReturnReceipt{
		ItemID:   itemID,
		Title:    it.Title,
		DueDate:  loan.DueDate,
		Returned: today,
		DaysLate: daysBetween(loan.DueDate, today),
	}
	if r.DaysLate > 0 {
		r.Fine = r.DaysLate * e.cfg.FinePerDay
	}
	e.log.Info("item returned",
		zap.Int("item_id", itemID),
		zap.Int("account_id", accountID),
		zap.Int("days_late", r.DaysLate),
		zap.Int("fine", r.Fine))

	return r, e.saveBoth()
}

// ------------------ Listings ------------------

// ListItems renders the catalog sorted by id.
func (e *Engine) ListItems() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.items) == 0 {
		return "No items available."
	}
	sorted := append([]*Item{}, e.items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var sb strings.Builder
	for _, it := range sorted {
		sb.WriteString(it.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ListAccounts renders all accounts sorted by id.
func (e *Engine) ListAccounts() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.accounts) == 0 {
		return "No accounts registered."
	}
	sorted := append([]*Account{}, e.accounts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var sb strings.Builder
	for _, a := range sorted {
		sb.WriteString(a.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// SearchItems matches keyword case-insensitively against title, author and
// genre, keeping catalog order.
func (e *Engine) SearchItems(keyword string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := strings.ToLower(keyword)
	var sb strings.Builder
	for _, it := range e.items {
		if strings.Contains(strings.ToLower(it.Title), k) ||
			strings.Contains(strings.ToLower(it.Author), k) ||
			strings.Contains(strings.ToLower(it.Genre), k) {
			sb.WriteString(it.String())
			sb.WriteString("\n")
		}
	}
	if sb.Len() == 0 {
		return "No items found for: " + keyword
	}
	return sb.String()
}

// ListLoansOf renders the account's current loans.
func (e *Engine) ListLoansOf(accountID int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acct := e.accountByID(accountID)
	if acct == nil {
		return "", errors.Wrapf(ErrAccountNotFound, "account %d", accountID)
	}
	if len(acct.Loans) == 0 {
		return "No borrowed items.", nil
	}

	var sb strings.Builder
	for _, l := range acct.Loans {
		title := "(unknown)"
		if it := e.itemByID(l.ItemID); it != nil {
			title = it.Title
		}
		fmt.Fprintf(&sb, "ID: %d | %s | Issued: %s | Due: %s\n",
			l.ItemID, title, formatDate(l.IssueDate), formatDate(l.DueDate))
	}
	return sb.String(), nil
}

// ------------------ Internals (callers hold e.mu) ------------------

func (e *Engine) itemByID(id int) *Item {
	for _, it := range e.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (e *Engine) accountByID(id int) *Account {
	for _, a := range e.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (e *Engine) nextItemID() int {
	highest := 0
	for _, it := range e.items {
		if it.ID > highest {
			highest = it.ID
		}
	}
	return highest + 1
}

func (e *Engine) nextAccountID() int {
	highest := 0
	for _, a := range e.accounts {
		if a.ID > highest {
			highest = a.ID
		}
	}
	return highest + 1
}

func (e *Engine) saveItems() error {
	return e.persisted("items", e.store.SaveItems(e.items))
}

func (e *Engine) saveAccounts() error {
	return e.persisted("accounts", e.store.SaveAccounts(e.accounts))
}

func (e *Engine) saveBoth() error {
	itemsErr := e.saveItems()
	accountsErr := e.saveAccounts()
	if itemsErr != nil {
		return itemsErr
	}
	return accountsErr
}

// persisted applies the persistence policy to the result of a save.
func (e *Engine) persisted(collection string, err error) error {
	if err == nil {
		return nil
	}
	e.log.Error("persist failed", zap.String("collection", collection), zap.Error(err))
	if e.cfg.Persist == PersistFailFast {
		return &PersistenceError{Collection: collection, Err: err}
	}
	return nil
}
