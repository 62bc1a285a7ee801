package testutil

import (
	"fmt"
	"time"

	"github.com/hupe1980/finmesh/finance"
)

// BaseTime is the default timestamp of built transactions, a weekday
// afternoon outside the unusual hour window.
var BaseTime = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

// TransactionBuilder provides a fluent helper for constructing transaction
// histories in tests.
// Example:
//
//	txns := NewTransactionBuilder().Debit("Swiggy", "food", 450).Credit("Acme", "salary", 80000).Build()
//
// Each entry is one hour after the previous one unless At is used.
type TransactionBuilder struct {
	txns []finance.Transaction
	next time.Time
}

// NewTransactionBuilder creates an empty builder starting at BaseTime.
func NewTransactionBuilder() *TransactionBuilder { return &TransactionBuilder{next: BaseTime} }

// At sets the timestamp of the next entry (chainable).
func (b *TransactionBuilder) At(ts time.Time) *TransactionBuilder { b.next = ts; return b }

// Debit appends a spending transaction (chainable).
func (b *TransactionBuilder) Debit(merchant, category string, amount float64) *TransactionBuilder {
	return b.add(merchant, category, amount, false)
}

// Credit appends an incoming transaction (chainable).
func (b *TransactionBuilder) Credit(merchant, category string, amount float64) *TransactionBuilder {
	return b.add(merchant, category, amount, true)
}

func (b *TransactionBuilder) add(merchant, category string, amount float64, credit bool) *TransactionBuilder {
	b.txns = append(b.txns, finance.Transaction{
		ID:        fmt.Sprintf("t%d", len(b.txns)+1),
		Amount:    amount,
		Category:  category,
		Merchant:  merchant,
		Timestamp: b.next,
		IsCredit:  credit,
	})
	b.next = b.next.Add(time.Hour)
	return b
}

// Build returns a copy of the accumulated transactions.
func (b *TransactionBuilder) Build() []finance.Transaction {
	return append([]finance.Transaction(nil), b.txns...)
}
