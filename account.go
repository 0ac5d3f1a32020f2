package gnc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// AccountType classifies an account. The values match the wire format.
type AccountType string

const (
	AccountTypeCash       AccountType = "CASH"
	AccountTypeBank       AccountType = "BANK"
	AccountTypeCredit     AccountType = "CREDIT"
	AccountTypeAsset      AccountType = "ASSET"
	AccountTypeLiability  AccountType = "LIABILITY"
	AccountTypeIncome     AccountType = "INCOME"
	AccountTypeExpense    AccountType = "EXPENSE"
	AccountTypePayable    AccountType = "PAYABLE"
	AccountTypeReceivable AccountType = "RECEIVABLE"
	AccountTypeEquity     AccountType = "EQUITY"
	AccountTypeCurrency   AccountType = "CURRENCY"
	AccountTypeStock      AccountType = "STOCK"
	AccountTypeMutual     AccountType = "MUTUAL"
	AccountTypeTrading    AccountType = "TRADING"
	AccountTypeRoot       AccountType = "ROOT"
)

var accountTypes = map[string]AccountType{}

func init() {
	for _, t := range []AccountType{
		AccountTypeCash, AccountTypeBank, AccountTypeCredit, AccountTypeAsset,
		AccountTypeLiability, AccountTypeIncome, AccountTypeExpense,
		AccountTypePayable, AccountTypeReceivable, AccountTypeEquity,
		AccountTypeCurrency, AccountTypeStock, AccountTypeMutual,
		AccountTypeTrading, AccountTypeRoot,
	} {
		accountTypes[string(t)] = t
	}
}

// ParseAccountType parses a wire account type.
func ParseAccountType(s string) (AccountType, error) {
	if t, ok := accountTypes[s]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// RootAccountName is the display name given to a synthesized ROOT account.
const RootAccountName = "Root Account"

// imbalancePrefix names the per-currency accounts absorbing unbalanced
// transaction amounts, e.g. "Imbalance-USD".
const imbalancePrefix = "Imbalance-"

// ImbalanceAccountName returns the name of the imbalance account for a
// currency code.
func ImbalanceAccountName(currencyCode string) string {
	return imbalancePrefix + currencyCode
}

// ImbalanceCurrency returns the currency code of an imbalance account name,
// or "" if the name does not follow the imbalance naming convention.
func ImbalanceCurrency(accountName string) string {
	if !strings.HasPrefix(accountName, imbalancePrefix) {
		return ""
	}
	return accountName[len(imbalancePrefix):]
}

// Account is one node of the strict account tree rooted at the single
// ROOT-typed account of a book. Accounts reference their parent by UID, never
// by pointer.
type Account struct {
	UID                string
	Name               string
	Type               AccountType
	Commodity          *Commodity
	ParentUID          string
	Placeholder        bool
	Hidden             bool
	Favorite           bool
	Color              string // normalized "#rrggbb", empty when unset
	DefaultTransferUID string
	Description        string
	Note               string
}

// NewAccount creates an account with a fresh UID.
func NewAccount(name string, accountType AccountType) *Account {
	return &Account{
		UID:  NewUID(),
		Name: name,
		Type: accountType,
	}
}

// IsRoot reports whether this is the ROOT account.
func (a *Account) IsRoot() bool { return a.Type == AccountTypeRoot }

var colorShort = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
var colorLong = regexp.MustCompile(`^#[0-9a-fA-F]{9}$`)

// ParseColor normalizes an account color to "#rrggbb". The desktop
// application historically exports colors as "#rrrgggbbb"; the last digit of
// each component block is dropped. Anything else (including the historical
// literal "Not set") is an error the caller should treat as a warning.
func ParseColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case colorShort.MatchString(s):
		return strings.ToLower(s), nil
	case colorLong.MatchString(s):
		return strings.ToLower("#" + s[1:3] + s[4:6] + s[7:9]), nil
	default:
		return "", fmt.Errorf("invalid color code %q", s)
	}
}

// SetColor parses and stores the account color.
func (a *Account) SetColor(s string) error {
	color, err := ParseColor(s)
	if err != nil {
		return err
	}
	a.Color = color
	return nil
}

// ColorRGB formats the account color as "rgb(r,g,b)" for the account-list
// export, or "" when no color is set.
func (a *Account) ColorRGB() string {
	if a.Color == "" {
		return ""
	}
	r, _ := strconv.ParseUint(a.Color[1:3], 16, 8)
	g, _ := strconv.ParseUint(a.Color[3:5], 16, 8)
	b, _ := strconv.ParseUint(a.Color[5:7], 16, 8)
	return fmt.Sprintf("rgb(%d,%d,%d)", r, g, b)
}
