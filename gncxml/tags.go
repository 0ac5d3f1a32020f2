// Package gncxml implements the streaming decoder and the encoder for the
// GnuCash XML interchange dialect.
//
// The decoder consumes a (possibly gzip-compressed) XML event stream and
// reconstructs a consistent account/transaction graph, enforcing the
// double-entry invariants on the fly. The encoder walks a book and emits the
// same dialect with the exact element ordering and typed attributes the
// desktop application expects.
package gncxml

import (
	"fmt"
	"strings"
	"time"

	"github.com/finledger/gnc"
)

// nsBase is the namespace URI prefix shared by every element namespace of
// the dialect; the part after it is the conventional prefix (gnc, act, ...).
const nsBase = "http://www.gnucash.org/XML/"

// namespaces declared on the document root, in emission order.
var namespaces = []string{
	"gnc", "act", "book", "cd", "cmdty", "price", "slot",
	"split", "trn", "ts", "sx", "bgt", "recurrence",
}

// Element names, qualified with their conventional prefix.
const (
	tagRoot      = "gnc-v2"
	tagBook      = "gnc:book"
	tagBookID    = "book:id"
	tagCountData = "gnc:count-data"

	tagCommodity       = "gnc:commodity"
	tagCmdtySpace      = "cmdty:space"
	tagCmdtyID         = "cmdty:id"
	tagCmdtyName       = "cmdty:name"
	tagCmdtyFraction   = "cmdty:fraction"
	tagCmdtyXcode      = "cmdty:xcode"
	tagCmdtyGetQuotes  = "cmdty:get_quotes"
	tagCmdtyQuoteSrc   = "cmdty:quote_source"
	tagCmdtyQuoteTZ    = "cmdty:quote_tz"

	tagPriceDB        = "gnc:pricedb"
	tagPrice          = "price"
	tagPriceID        = "price:id"
	tagPriceCommodity = "price:commodity"
	tagPriceCurrency  = "price:currency"
	tagPriceTime      = "price:time"
	tagPriceSource    = "price:source"
	tagPriceType      = "price:type"
	tagPriceValue     = "price:value"

	tagAccount          = "gnc:account"
	tagActName          = "act:name"
	tagActID            = "act:id"
	tagActType          = "act:type"
	tagActCommodity     = "act:commodity"
	tagActCommoditySCU  = "act:commodity-scu"
	tagActDescription   = "act:description"
	tagActSlots         = "act:slots"
	tagActParent        = "act:parent"

	tagTransaction    = "gnc:transaction"
	tagTrnID          = "trn:id"
	tagTrnCurrency    = "trn:currency"
	tagTrnDatePosted  = "trn:date-posted"
	tagTrnDateEntered = "trn:date-entered"
	tagTrnDescription = "trn:description"
	tagTrnSlots       = "trn:slots"
	tagTrnSplits      = "trn:splits"
	tagTrnSplit       = "trn:split"

	tagSplitID         = "split:id"
	tagSplitMemo       = "split:memo"
	tagSplitReconciled = "split:reconciled-state"
	tagSplitValue      = "split:value"
	tagSplitQuantity   = "split:quantity"
	tagSplitAccount    = "split:account"
	tagSplitSlots      = "split:slots"

	tagTsDate = "ts:date"
	tagGDate  = "gdate"

	tagTemplateTransactions = "gnc:template-transactions"

	tagSchedXaction     = "gnc:schedxaction"
	tagSxID             = "sx:id"
	tagSxName           = "sx:name"
	tagSxEnabled        = "sx:enabled"
	tagSxAutoCreate     = "sx:autoCreate"
	tagSxAutoNotify     = "sx:autoCreateNotify"
	tagSxAdvanceCreate  = "sx:advanceCreateDays"
	tagSxAdvanceRemind  = "sx:advanceRemindDays"
	tagSxInstanceCount  = "sx:instanceCount"
	tagSxStart          = "sx:start"
	tagSxLast           = "sx:last"
	tagSxEnd            = "sx:end"
	tagSxNumOccur       = "sx:num-occur"
	tagSxRemOccur       = "sx:rem-occur"
	tagSxTag            = "sx:tag"
	tagSxTemplAccount   = "sx:templ-acct"
	tagSxSchedule       = "sx:schedule"

	tagRecurrence           = "gnc:recurrence"
	tagRecurrenceMult       = "recurrence:mult"
	tagRecurrencePeriodType = "recurrence:period_type"
	tagRecurrenceStart      = "recurrence:start"
	tagRecurrenceWeekendAdj = "recurrence:weekend_adj"

	tagBudget            = "gnc:budget"
	tagBudgetID          = "bgt:id"
	tagBudgetName        = "bgt:name"
	tagBudgetDescription = "bgt:description"
	tagBudgetNumPeriods  = "bgt:num-periods"
	tagBudgetRecurrence  = "bgt:recurrence"
	tagBudgetSlots       = "bgt:slots"

	tagSlot      = "slot"
	tagSlotKey   = "slot:key"
	tagSlotValue = "slot:value"
)

// Attribute names and values.
const (
	attrType    = "type"
	attrCdType  = "cd:type"
	attrVersion = "version"

	attrValueGUID    = "guid"
	attrValueString  = "string"
	attrValueNumeric = "numeric"
	attrValueFrame   = "frame"

	bookVersion       = "2.0.0"
	recurrenceVersion = "1.0.0"
)

// Count-data categories.
const (
	cdBook        = "book"
	cdCommodity   = "commodity"
	cdAccount     = "account"
	cdTransaction = "transaction"
	cdPrice       = "price"
)

// Slot keys mapped to typed model fields at the codec boundary.
const (
	keyPlaceholder     = "placeholder"
	keyColor           = "color"
	keyFavorite        = "favorite"
	keyNotes           = "notes"
	keyDefaultTransfer = "default_transfer_account"
	keyExported        = "exported"
	keySchedXaction    = "sched-xaction"
	keyFromSchedAction = "from-sched-xaction"
	keySplitAccount    = "account"
	keyCreditFormula   = "credit-formula"
	keyCreditNumeric   = "credit-numeric"
	keyDebitFormula    = "debit-formula"
	keyDebitNumeric    = "debit-numeric"
)

// Timestamp layouts of the dialect. Full timestamps carry a zone offset;
// plain dates do not, but the desktop lineage has emitted full timestamps
// inside <gdate> too, so parsing accepts both.
const (
	tsLayout    = "2006-01-02 15:04:05 -0700"
	gdateLayout = "2006-01-02"
)

func formatDateTime(t time.Time) string { return t.Format(tsLayout) }

func parseDateTime(s string) (time.Time, error) {
	return time.Parse(tsLayout, strings.TrimSpace(s))
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(gdateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(tsLayout, s)
}

// qname maps an expanded XML name back to its conventional prefixed form,
// e.g. {http://www.gnucash.org/XML/act}name -> "act:name". Names outside the
// dialect's namespaces keep their local part.
func qname(space, local string) string {
	if space == "" {
		return local
	}
	if prefix, ok := strings.CutPrefix(space, nsBase); ok {
		return prefix + ":" + local
	}
	return local
}

// formatTemplateAmount renders a template split amount for the
// credit/debit formula slots: plain decimal digits, no sign, no grouping.
func formatTemplateAmount(n gnc.Numeric, digits int32) string {
	return n.Abs().Decimal().StringFixed(digits)
}

// fractionString renders the exact numerator/denominator wire form with the
// sign convention applied for the given split type.
func fractionString(n gnc.Numeric, credit bool) string {
	n = n.Abs()
	if credit {
		return fmt.Sprintf("-%d/%d", n.Num, n.Denom)
	}
	return fmt.Sprintf("%d/%d", n.Num, n.Denom)
}
