package library

import (
	"fmt"
	"strings"
	"time"
)

// Account is a registered principal and the loans it currently holds.
// Loans are owned by the Engine; callers only ever see copies.
type Account struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Secret   string `json:"secret"`
	Role     Role   `json:"role"`
	Loans    []Loan `json:"loans"`
}

// NewAccount builds an account with no loans.
func NewAccount(id int, name, username, secret string, role Role) *Account {
	return &Account{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Username: strings.TrimSpace(username),
		Secret:   secret,
		Role:     role,
		Loans:    []Loan{},
	}
}

// AddLoan records that the account borrowed itemID on today, due loanDays later.
func (a *Account) AddLoan(itemID int, today time.Time, loanDays int) Loan {
	issued := civilDate(today)
	loan := Loan{
		ItemID:    itemID,
		IssueDate: issued,
		DueDate:   issued.AddDate(0, 0, loanDays),
	}
	a.Loans = append(a.Loans, loan)
	return loan
}

// RemoveLoan drops the first loan for itemID and returns it.
func (a *Account) RemoveLoan(itemID int) (Loan, bool) {
	for i, l := range a.Loans {
		if l.ItemID == itemID {
			a.Loans = append(a.Loans[:i], a.Loans[i+1:]...)
			return l, true
		}
	}
	return Loan{}, false
}

// HasLoan reports whether the account currently holds itemID.
func (a *Account) HasLoan(itemID int) bool {
	for _, l := range a.Loans {
		if l.ItemID == itemID {
			return true
		}
	}
	return false
}

func (a *Account) clone() *Account {
	c := *a
	c.Loans = append([]Loan{}, a.Loans...)
	return &c
}

func (a *Account) String() string {
	loans := make([]string, 0, len(a.Loans))
	for _, l := range a.Loans {
		loans = append(loans, l.String())
	}
	return fmt.Sprintf("%d | %s | @%s | Role: %s | Borrowed: [%s]",
		a.ID, a.Name, a.Username, a.Role, strings.Join(loans, ", "))
}

// AccountView is the read-only handle returned by Authenticate.
type AccountView struct {
	ID       int
	Name     string
	Username string
	Role     Role
	Loans    []Loan
}

// IsAdmin reports whether the account may manage the catalog.
func (v AccountView) IsAdmin() bool { return v.Role == RoleAdmin }

func viewOf(a *Account) AccountView {
	return AccountView{
		ID:       a.ID,
		Name:     a.Name,
		Username: a.Username,
		Role:     a.Role,
		Loans:    append([]Loan{}, a.Loans...),
	}
}
