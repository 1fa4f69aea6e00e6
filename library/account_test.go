package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLoans(t *testing.T) {
	a := NewAccount(1, " Alice ", " alice ", "pw", RoleUser)
	assert.Equal(t, "Alice", a.Name)
	assert.Equal(t, "alice", a.Username)

	// Late evening in a non-UTC zone still counts as that calendar day.
	today := time.Date(2026, time.October, 18, 23, 45, 0, 0, time.FixedZone("UTC-5", -5*3600))
	loan := a.AddLoan(3, today, 7)
	assert.Equal(t, "2026-10-18", formatDate(loan.IssueDate))
	assert.Equal(t, "2026-10-25", formatDate(loan.DueDate))

	a.AddLoan(4, today, 7)
	a.AddLoan(3, today.AddDate(0, 0, 1), 7)
	require.Len(t, a.Loans, 3)
	assert.True(t, a.HasLoan(4))

	got, ok := a.RemoveLoan(3)
	require.True(t, ok)
	assert.Equal(t, loan, got, "first matching loan is removed")
	require.Len(t, a.Loans, 2)
	assert.Equal(t, 4, a.Loans[0].ItemID)

	_, ok = a.RemoveLoan(99)
	assert.False(t, ok)
}

func TestRenderings(t *testing.T) {
	it := NewItem(7, "Dune", "Herbert", "SciFi")
	assert.Equal(t, "7 | Dune | Herbert | SciFi | Available", it.String())
	it.Issued = true
	assert.Equal(t, "7 | Dune | Herbert | SciFi | Issued", it.String())

	a := NewAccount(2, "Alice", "alice", "hunter2", RoleUser)
	a.AddLoan(7, time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC), 7)
	assert.Equal(t,
		"2 | Alice | @alice | Role: user | Borrowed: [ItemID: 7 | Issued: 2026-10-18 | Due: 2026-10-25]",
		a.String())
}

func TestDaysBetween(t *testing.T) {
	due := time.Date(2026, time.October, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, daysBetween(due, due.Add(23*time.Hour)))
	assert.Equal(t, 3, daysBetween(due, due.AddDate(0, 0, 3)))
	assert.Equal(t, -7, daysBetween(due, due.AddDate(0, 0, -7)))
}
