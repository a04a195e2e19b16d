package journal

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Well-known GL account codes used by the fee ledger postings
const (
	AccountCash               = "1000"
	AccountAccountsReceivable = "1100"
	AccountStudentCredit      = "2100"
	AccountFeeRevenue         = "4000"
)

// AccountType classifies a GL account for normal-balance checks
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Account is a general ledger account
type Account struct {
	ID        uuid.UUID   `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// EntryStatus is the posting state of a journal entry
type EntryStatus string

const (
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoided EntryStatus = "VOIDED"
)

// ErrUnbalancedEntry rejects a journal entry whose debits and credits differ.
// This is a hard accounting invariant; hitting it aborts the enclosing
// transaction.
var ErrUnbalancedEntry = errors.New("journal entry debits do not equal credits")

// Entry is a double-entry journal posting, optionally linked to the ledger
// transaction that caused it
type Entry struct {
	ID                uuid.UUID   `json:"id"`
	EntryDate         time.Time   `json:"entry_date"`
	Description       string      `json:"description"`
	Status            EntryStatus `json:"status"`
	SourceLedgerTxnID *uuid.UUID  `json:"source_ledger_txn_id,omitempty"`
	Lines             []Line      `json:"lines"`
	CreatedBy         uuid.UUID   `json:"created_by"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Line is one leg of a journal entry. Exactly one of DebitAmount and
// CreditAmount is positive.
type Line struct {
	ID           uuid.UUID `json:"id"`
	EntryID      uuid.UUID `json:"entry_id"`
	AccountCode  string    `json:"account_code"`
	DebitAmount  int64     `json:"debit_amount"`
	CreditAmount int64     `json:"credit_amount"`
}

// NewEntry assembles a POSTED entry from its lines, dropping zero-amount legs
// and rejecting an unbalanced set. sourceTxnID may be nil for postings with no
// ledger transaction (e.g. invoice issuance).
func NewEntry(date time.Time, description string, sourceTxnID *uuid.UUID, createdBy uuid.UUID, lines []Line) (*Entry, error) {
	var kept []Line
	var debits, credits int64
	for _, l := range lines {
		if l.DebitAmount == 0 && l.CreditAmount == 0 {
			continue
		}
		if l.DebitAmount < 0 || l.CreditAmount < 0 {
			return nil, errors.New("journal line amounts must not be negative")
		}
		debits += l.DebitAmount
		credits += l.CreditAmount
		kept = append(kept, l)
	}
	if debits != credits {
		return nil, ErrUnbalancedEntry
	}
	if len(kept) == 0 {
		return nil, errors.New("journal entry has no lines")
	}

	entry := &Entry{
		ID:                uuid.New(),
		EntryDate:         date,
		Description:       description,
		Status:            EntryStatusPosted,
		SourceLedgerTxnID: sourceTxnID,
		CreatedBy:         createdBy,
		CreatedAt:         time.Now(),
	}
	for _, l := range kept {
		l.ID = uuid.New()
		l.EntryID = entry.ID
		entry.Lines = append(entry.Lines, l)
	}
	return entry, nil
}

// Debit builds a debit leg
func Debit(accountCode string, amount int64) Line {
	return Line{AccountCode: accountCode, DebitAmount: amount}
}

// Credit builds a credit leg
func Credit(accountCode string, amount int64) Line {
	return Line{AccountCode: accountCode, CreditAmount: amount}
}
