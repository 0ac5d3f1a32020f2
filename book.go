package gnc

import (
	"fmt"
	"sort"
	"strings"
)

// Book is the aggregate root produced by one decode pass: it owns (by
// reference) every account, transaction, price, scheduled action and budget
// of one ledger file.
type Book struct {
	UID            string
	DisplayName    string
	RootAccountUID string

	accounts  []*Account
	byUID     map[string]*Account
	fullNames map[string]string

	Transactions         []*Transaction
	TemplateTransactions []*Transaction
	Prices               []*Price
	ScheduledActions     []*ScheduledAction
	Budgets              []*Budget
}

// NewBook creates an empty book with a fresh UID.
func NewBook() *Book {
	return &Book{
		UID:   NewUID(),
		byUID: make(map[string]*Account),
	}
}

// AddAccount registers an account in the book. Adding a second ROOT account
// is an error; the first ROOT account becomes the book's root.
func (b *Book) AddAccount(a *Account) error {
	if a == nil {
		return fmt.Errorf("nil account")
	}
	if a.UID == "" {
		a.UID = NewUID()
	}
	if a.IsRoot() {
		if b.RootAccountUID != "" {
			return fmt.Errorf("multiple ROOT accounts in book")
		}
		b.RootAccountUID = a.UID
	}
	if b.byUID == nil {
		b.byUID = make(map[string]*Account)
	}
	b.accounts = append(b.accounts, a)
	b.byUID[a.UID] = a
	b.fullNames = nil
	return nil
}

// Account returns the account with the given UID, or nil.
func (b *Book) Account(uid string) *Account {
	return b.byUID[uid]
}

// Accounts returns the accounts in insertion order.
func (b *Book) Accounts() []*Account {
	return b.accounts
}

// RootAccount returns the book's ROOT account, or nil before one exists.
func (b *Book) RootAccount() *Account {
	return b.byUID[b.RootAccountUID]
}

// AccountFullName returns the colon-separated path of the account from the
// root, e.g. "Assets:Bank:Checking". The ROOT account itself has an empty
// full name and does not appear in its descendants' paths.
func (b *Book) AccountFullName(uid string) string {
	if b.fullNames == nil {
		b.fullNames = make(map[string]string, len(b.accounts))
	}
	if name, ok := b.fullNames[uid]; ok {
		return name
	}
	a := b.byUID[uid]
	if a == nil {
		return ""
	}
	var name string
	if a.IsRoot() {
		name = ""
	} else if parent := b.AccountFullName(a.ParentUID); parent != "" {
		name = parent + ":" + a.Name
	} else {
		name = a.Name
	}
	b.fullNames[uid] = name
	return name
}

// AccountsByFullName returns the accounts sorted by full name, which
// guarantees every parent appears before its children. The ROOT account
// sorts first.
func (b *Book) AccountsByFullName() []*Account {
	sorted := make([]*Account, len(b.accounts))
	copy(sorted, b.accounts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsRoot() != sorted[j].IsRoot() {
			return sorted[i].IsRoot()
		}
		return strings.Compare(b.AccountFullName(sorted[i].UID), b.AccountFullName(sorted[j].UID)) < 0
	})
	return sorted
}

// CommoditiesInUse returns the distinct commodities referenced by the book's
// accounts, in first-use order. Template placeholders are excluded.
func (b *Book) CommoditiesInUse() []*Commodity {
	var inUse []*Commodity
	for _, a := range b.accounts {
		c := a.Commodity
		if c == nil || c.IsTemplate() {
			continue
		}
		known := false
		for _, seen := range inUse {
			if seen.Same(c) {
				known = true
				break
			}
		}
		if !known {
			inUse = append(inUse, c)
		}
	}
	return inUse
}

// Transaction returns the non-template transaction with the given UID, or
// nil.
func (b *Book) Transaction(uid string) *Transaction {
	for _, t := range b.Transactions {
		if t.UID == uid {
			return t
		}
	}
	return nil
}

// TemplateTransaction returns the template transaction with the given UID,
// or nil.
func (b *Book) TemplateTransaction(uid string) *Transaction {
	for _, t := range b.TemplateTransactions {
		if t.UID == uid {
			return t
		}
	}
	return nil
}
