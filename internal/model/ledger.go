package model

import (
	"strings"
	"time"
)

type EntryKind string

const (
	EntryEarned EntryKind = "earned" // points from a sale
	EntrySpent  EntryKind = "spent"  // escrowed for a redemption request
	EntryCredit EntryKind = "credit" // refunds and manual grants
	EntryDebit  EntryKind = "debit"  // manual removals
)

func (k EntryKind) String() string { return string(k) }

func (k EntryKind) Valid() bool {
	switch k {
	case EntryEarned, EntrySpent, EntryCredit, EntryDebit:
		return true
	default:
		return false
	}
}

// Sign is +1 for kinds that add points and -1 for kinds that remove them.
func (k EntryKind) Sign() int64 {
	if k == EntrySpent || k == EntryDebit {
		return -1
	}
	return 1
}

// ParseEntryKind normalizes input; returns (kind, false) when unknown.
func ParseEntryKind(s string) (EntryKind, bool) {
	k := EntryKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// LedgerEntry is an immutable, signed change to a customer's balance.
type LedgerEntry struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	CustomerID  string    `db:"customer_id" json:"customer_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Kind        EntryKind `db:"kind" json:"kind"`
	Description string    `db:"description" json:"description"`
	ReferenceID *string   `db:"reference_id" json:"reference_id,omitempty"` // redemption request or sale
	CreatedBy   *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Validate checks the amount is non-zero and carries the sign its kind implies.
func (e LedgerEntry) Validate() error {
	if !e.Kind.Valid() {
		return ErrInvalidAmount
	}
	if e.Amount == 0 || (e.Amount > 0) != (e.Kind.Sign() > 0) {
		return ErrInvalidAmount
	}
	return nil
}
