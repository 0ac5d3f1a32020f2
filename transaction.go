package gnc

import (
	"fmt"
	"time"
)

// SplitType tells whether a split debits or credits its account. On the wire
// credits carry negative amounts and debits positive ones.
type SplitType string

const (
	SplitDebit  SplitType = "DEBIT"
	SplitCredit SplitType = "CREDIT"
)

// ParseSplitType parses a split type.
func ParseSplitType(s string) (SplitType, error) {
	switch SplitType(s) {
	case SplitDebit:
		return SplitDebit, nil
	case SplitCredit:
		return SplitCredit, nil
	}
	return "", fmt.Errorf("unknown split type %q", s)
}

// Split is one leg of a double-entry transaction, debiting or crediting
// exactly one account.
//
// Value is denominated in the transaction's commodity, Quantity in the split
// account's commodity. The two differ only when the commodities differ, e.g.
// a stock account inside a currency-denominated transaction. Both are stored
// without sign; the sign is carried by Type.
type Split struct {
	UID        string
	Memo       string
	Reconciled bool
	Value      Numeric
	Quantity   Numeric
	Type       SplitType
	AccountUID string
}

// NewSplit creates a split with a fresh UID.
func NewSplit(value Numeric, accountUID string) *Split {
	return &Split{
		UID:        NewUID(),
		Value:      value.Abs(),
		Quantity:   value.Abs(),
		Type:       SplitDebit,
		AccountUID: accountUID,
	}
}

// SignedValue returns the split value with the wire sign convention applied:
// negative for credits, positive for debits.
func (s *Split) SignedValue() Numeric {
	if s.Type == SplitCredit {
		return s.Value.Abs().Neg()
	}
	return s.Value.Abs()
}

// SignedQuantity returns the split quantity with the wire sign convention.
func (s *Split) SignedQuantity() Numeric {
	if s.Type == SplitCredit {
		return s.Quantity.Abs().Neg()
	}
	return s.Quantity.Abs()
}

// Transaction is a dated double-entry record. For non-template transactions
// the signed values of all splits sum to zero in the transaction's commodity.
type Transaction struct {
	UID                string
	Commodity          *Commodity
	TimePosted         time.Time
	TimeEntered        time.Time
	Description        string
	Note               string
	ScheduledActionUID string
	Template           bool
	Exported           bool
	Splits             []*Split
}

// NewTransaction creates a transaction with a fresh UID.
func NewTransaction(description string, commodity *Commodity) *Transaction {
	now := time.Now()
	return &Transaction{
		UID:         NewUID(),
		Commodity:   commodity,
		TimePosted:  now,
		TimeEntered: now,
		Description: description,
	}
}

// AddSplit appends a split to the transaction.
func (t *Transaction) AddSplit(s *Split) {
	if s == nil {
		return
	}
	t.Splits = append(t.Splits, s)
}

// Balance returns the signed sum of the split values in the transaction's
// commodity. Zero means the transaction is balanced.
func (t *Transaction) Balance() Numeric {
	sum := Zero
	for _, s := range t.Splits {
		sum = sum.Add(s.SignedValue())
	}
	return sum
}

// CreateAutoBalanceSplit appends a balancing split when a non-template
// transaction does not sum to zero, and returns it.
//
// The returned split has no account: the imbalance account for the
// transaction's currency may not exist yet, so the caller must resolve the
// account reference in a later pass.
func (t *Transaction) CreateAutoBalanceSplit() *Split {
	if t.Template {
		return nil
	}
	imbalance := t.Balance()
	if imbalance.IsZero() {
		return nil
	}
	split := &Split{
		UID:      NewUID(),
		Value:    imbalance.Abs(),
		Quantity: imbalance.Abs(),
	}
	if imbalance.Sign() > 0 {
		split.Type = SplitCredit
	} else {
		split.Type = SplitDebit
	}
	t.Splits = append(t.Splits, split)
	return split
}
