package models

import (
	"github.com/shopspring/decimal"
	"time"
)

// Balance is customer bonus balance
type Balance struct {
	UserID   string
	Points   decimal.Decimal
	Credited decimal.Decimal
	Reversed decimal.Decimal
}

// LedgerEntryKind is kind of bonus ledger entry
type LedgerEntryKind string

const (
	LedgerCredit LedgerEntryKind = "credit"
	LedgerDebit  LedgerEntryKind = "debit"
)

// LedgerEntry is a single bonus ledger effect of an order.
// There is at most one entry of each kind per order.
type LedgerEntry struct {
	ID        uint64
	OrderID   string
	UserID    string
	Kind      LedgerEntryKind
	Amount    decimal.Decimal
	CreatedAt time.Time
}
