// Package qif exports the transaction register to the QIF flat-file format.
//
// QIF has no native multi-currency support, so the register is written as a
// single stream with internal currency markers and then split into one file
// per currency; multiple files travel together in a zip archive.
package qif

import (
	"github.com/finledger/gnc"
)

// Line prefixes of the QIF syntax.
const (
	prefixPayee         = "P"
	prefixDate          = "D"
	prefixTotal         = "T"
	prefixMemo          = "M"
	prefixCategory      = "L"
	prefixSplitMemo     = "E"
	prefixSplitAmount   = "$"
	prefixSplitCategory = "S"
	prefixType          = "T"
	prefixAccountName   = "N"
	prefixAccountDesc   = "D"

	sectionAccount    = "!Account"
	sectionTypePrefix = "!Type:"

	// currencyMarker lines are internal only: they delimit the per-currency
	// segments of the combined stream and never appear in output files.
	currencyMarker  = "*"
	entryTerminator = "^"
)

// QIF account classes.
const (
	typeCash      = "Cash"
	typeBank      = "Bank"
	typeCCard     = "CCard"
	typeInvest    = "Invst"
	typeAsset     = "Oth A"
	typeLiability = "Oth L"
)

// dateLayout is the QIF date form, without zero padding.
const dateLayout = "2006/1/2"

// accountClass maps an account type to the QIF class its transactions are
// filed under.
func accountClass(t gnc.AccountType) string {
	switch t {
	case gnc.AccountTypeCash, gnc.AccountTypeIncome, gnc.AccountTypeExpense,
		gnc.AccountTypePayable, gnc.AccountTypeReceivable:
		return typeCash
	case gnc.AccountTypeCredit:
		return typeCCard
	case gnc.AccountTypeAsset, gnc.AccountTypeEquity:
		return typeAsset
	case gnc.AccountTypeLiability:
		return typeLiability
	case gnc.AccountTypeCurrency, gnc.AccountTypeStock, gnc.AccountTypeTrading:
		return typeInvest
	case gnc.AccountTypeBank, gnc.AccountTypeMutual:
		return typeBank
	}
	return typeBank
}
