package library

import (
	"fmt"
	"strings"
	"time"
)

// Role is the permission level of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Item is a catalog entry. At most one account holds it at a time.
type Item struct {
	ID     int    `json:"id" db:"id"`
	Title  string `json:"title" db:"title"`
	Author string `json:"author" db:"author"`
	Genre  string `json:"genre" db:"genre"`
	Issued bool   `json:"issued" db:"issued"`
}

// NewItem builds an available item with trimmed text fields.
func NewItem(id int, title, author, genre string) *Item {
	return &Item{
		ID:     id,
		Title:  strings.TrimSpace(title),
		Author: strings.TrimSpace(author),
		Genre:  strings.TrimSpace(genre),
	}
}

func (it Item) String() string {
	status := "Available"
	if it.Issued {
		status = "Issued"
	}
	return fmt.Sprintf("%d | %s | %s | %s | %s", it.ID, it.Title, it.Author, it.Genre, status)
}

// Loan records one account holding one item between IssueDate and DueDate.
// Both dates are calendar days normalised to UTC midnight.
type Loan struct {
	ItemID    int       `json:"item_id"`
	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`
}

func (l Loan) String() string {
	return fmt.Sprintf("ItemID: %d | Issued: %s | Due: %s", l.ItemID, formatDate(l.IssueDate), formatDate(l.DueDate))
}

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string { return t.Format(dateLayout) }

// civilDate drops the clock part of t, keeping the calendar day as seen in t's location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b (negative when b is earlier).
func daysBetween(a, b time.Time) int {
	return int(civilDate(b).Sub(civilDate(a)).Hours() / 24)
}
