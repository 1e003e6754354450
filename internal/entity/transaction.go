package entity

import (
	"errors"
	"time"
)

var ConflictErr = errors.New("transaction conflict")

const PageSize = 10

// Transaction is immutable once created. Timestamp and Seq are assigned
// by the store when the transaction is appended; Seq is monotonic per
// account and breaks ordering ties between equal timestamps.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountID"`
	SubjectID   string    `json:"subjectID"`
	Timestamp   time.Time `json:"timestamp"`
	Seq         uint64    `json:"seq"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
}

type Direction int

const (
	// CurrentPage fetches the most recent transactions.
	CurrentPage Direction = iota
	// OlderPage fetches transactions strictly below the boundary.
	OlderPage
	// NewerPage fetches transactions strictly above the boundary.
	NewerPage
)

// Cursor addresses a page boundary. Time and Seq are taken verbatim
// from the first or last transaction of a previously fetched page and
// are compared strictly, so a boundary row never appears twice.
type Cursor struct {
	Direction Direction
	Time      time.Time
	Seq       uint64
}

// Page is one bounded slice of an account's history, newest first.
// LastPage is set when a current- or older-direction fetch returned
// fewer than PageSize rows.
type Page struct {
	Transactions []Transaction
	LastPage     bool
}

// Older returns the cursor addressing the transactions strictly older
// than this page. The page must not be empty.
func (p Page) Older() Cursor {
	last := p.Transactions[len(p.Transactions)-1]
	return Cursor{Direction: OlderPage, Time: last.Timestamp, Seq: last.Seq}
}

// Newer returns the cursor addressing the transactions strictly newer
// than this page. The page must not be empty.
func (p Page) Newer() Cursor {
	first := p.Transactions[0]
	return Cursor{Direction: NewerPage, Time: first.Timestamp, Seq: first.Seq}
}
