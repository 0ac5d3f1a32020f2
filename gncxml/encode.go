package gncxml

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/finledger/gnc"
)

// Encode writes the book as one GnuCash XML document. The element ordering
// follows the contract the desktop application expects: declaration, root
// with namespace attributes, book counts, commodities, price database,
// accounts sorted parents-before-children, transactions, template
// transactions, scheduled actions, budgets.
func Encode(ctx context.Context, w io.Writer, book *gnc.Book, opts ...Option) error {
	o := newOptions(opts)
	e := &encoder{ctx: ctx, x: newXMLWriter(w), book: book, listener: o.listener}
	if err := e.document(); err != nil {
		return &ExportError{Op: "xml", Err: err}
	}
	if err := e.x.flush(); err != nil {
		return &ExportError{Op: "xml", Err: err}
	}
	return nil
}

type encoder struct {
	ctx      context.Context
	x        *xmlWriter
	book     *gnc.Book
	listener Listener

	// template transaction UID -> UID of its synthesized backing account
	templAcct map[string]string
}

func (e *encoder) document() error {
	x := e.x
	x.declaration()

	rootAttrs := make([]string, 0, 2*len(namespaces))
	for _, prefix := range namespaces {
		rootAttrs = append(rootAttrs, "xmlns:"+prefix, nsBase+prefix)
	}
	x.start(tagRoot, rootAttrs...)
	x.leaf(tagCountData, "1", attrCdType, cdBook)

	x.start(tagBook, attrVersion, bookVersion)
	x.leaf(tagBookID, e.book.UID, attrType, attrValueGUID)

	commodities := e.book.CommoditiesInUse()
	x.leaf(tagCountData, strconv.Itoa(len(commodities)), attrCdType, cdCommodity)
	x.leaf(tagCountData, strconv.Itoa(len(e.book.Accounts())), attrCdType, cdAccount)
	x.leaf(tagCountData, strconv.Itoa(len(e.book.Transactions)), attrCdType, cdTransaction)
	if n := len(e.book.Prices); n > 0 {
		x.leaf(tagCountData, strconv.Itoa(n), attrCdType, cdPrice)
	}
	if e.listener != nil {
		e.listener.OnBookCount(1)
		e.listener.OnCommodityCount(int64(len(commodities)))
		e.listener.OnAccountCount(int64(len(e.book.Accounts())))
		e.listener.OnTransactionCount(int64(len(e.book.Transactions)))
		e.listener.OnPriceCount(int64(len(e.book.Prices)))
	}

	for _, c := range commodities {
		e.commodity(c)
		if e.listener != nil {
			e.listener.OnCommodity(c)
		}
	}
	// the reserved template commodity is always declared; CommoditiesInUse
	// never reports it
	e.commodity(gnc.TemplateCommodity())
	if err := e.check(); err != nil {
		return err
	}

	if len(e.book.Prices) > 0 {
		e.priceDB()
		if err := e.check(); err != nil {
			return err
		}
	}

	for _, a := range e.book.AccountsByFullName() {
		e.account(a)
		if e.listener != nil {
			e.listener.OnAccount(a)
		}
		if err := e.check(); err != nil {
			return err
		}
	}

	for _, t := range e.book.Transactions {
		if err := e.transaction(t); err != nil {
			return err
		}
		if e.listener != nil {
			e.listener.OnTransaction(t)
		}
		if err := e.check(); err != nil {
			return err
		}
	}

	if len(e.book.TemplateTransactions) > 0 {
		if err := e.templateSection(); err != nil {
			return err
		}
	}

	for _, s := range e.book.ScheduledActions {
		e.scheduledAction(s)
		if e.listener != nil {
			e.listener.OnSchedule(s)
		}
		if err := e.check(); err != nil {
			return err
		}
	}

	for _, b := range e.book.Budgets {
		e.budget(b)
		if e.listener != nil {
			e.listener.OnBudget(b)
		}
		if err := e.check(); err != nil {
			return err
		}
	}

	x.end() // gnc:book
	x.end() // gnc-v2
	return nil
}

func (e *encoder) check() error {
	if err := e.ctx.Err(); err != nil {
		return fmt.Errorf("encode canceled: %w", err)
	}
	return e.x.err
}

// commodityRef writes the two-element (namespace, mnemonic) reference under
// an already-open parent. Currencies always travel under the ISO4217 alias.
func (e *encoder) commodityRef(c *gnc.Commodity) {
	namespace := c.Namespace
	if c.IsCurrency() {
		namespace = gnc.NamespaceISO4217
	}
	e.x.leaf(tagCmdtySpace, namespace)
	e.x.leaf(tagCmdtyID, c.Mnemonic)
}

func (e *encoder) commodity(c *gnc.Commodity) {
	x := e.x
	x.start(tagCommodity, attrVersion, bookVersion)
	e.commodityRef(c)
	if c.Fullname != "" {
		x.leaf(tagCmdtyName, c.Fullname)
	}
	if c.Cusip != "" {
		x.leaf(tagCmdtyXcode, c.Cusip)
	}
	x.leaf(tagCmdtyFraction, strconv.FormatInt(c.SmallestFraction, 10))
	if c.QuoteSource != "" {
		x.leaf(tagCmdtyGetQuotes, "")
		x.leaf(tagCmdtyQuoteSrc, c.QuoteSource)
		x.leaf(tagCmdtyQuoteTZ, c.QuoteTimeZone)
	}
	x.end()
}

func (e *encoder) priceDB() {
	x := e.x
	x.start(tagPriceDB, attrVersion, "1")
	for _, p := range e.book.Prices {
		x.start(tagPrice)
		x.leaf(tagPriceID, p.UID, attrType, attrValueGUID)
		x.start(tagPriceCommodity)
		e.commodityRef(p.Commodity)
		x.end()
		x.start(tagPriceCurrency)
		e.commodityRef(p.Currency)
		x.end()
		x.start(tagPriceTime)
		x.leaf(tagTsDate, formatDateTime(p.Date))
		x.end()
		if p.Source != "" {
			x.leaf(tagPriceSource, p.Source)
		}
		if p.Type != "" {
			x.leaf(tagPriceType, p.Type)
		}
		x.leaf(tagPriceValue, p.Value.String())
		x.end()
		if e.listener != nil {
			e.listener.OnPrice(p)
		}
	}
	x.end()
}

func (e *encoder) account(a *gnc.Account) {
	x := e.x
	x.start(tagAccount, attrVersion, bookVersion)
	x.leaf(tagActName, a.Name)
	x.leaf(tagActID, a.UID, attrType, attrValueGUID)
	x.leaf(tagActType, string(a.Type))
	if a.Commodity != nil {
		x.start(tagActCommodity)
		e.commodityRef(a.Commodity)
		x.end()
		x.leaf(tagActCommoditySCU, strconv.FormatInt(a.Commodity.SmallestFraction, 10))
	}
	if a.Description != "" {
		x.leaf(tagActDescription, a.Description)
	}
	e.accountSlots(a)
	if !a.IsRoot() && a.ParentUID != "" {
		x.leaf(tagActParent, a.ParentUID, attrType, attrValueGUID)
	}
	x.end()
}

func (e *encoder) accountSlots(a *gnc.Account) {
	type slot struct{ key, typ, value string }
	var slots []slot
	if a.Placeholder {
		slots = append(slots, slot{keyPlaceholder, attrValueString, "true"})
	}
	if a.Color != "" {
		slots = append(slots, slot{keyColor, attrValueString, a.Color})
	}
	if a.Favorite {
		slots = append(slots, slot{keyFavorite, attrValueString, "true"})
	}
	if a.Note != "" {
		slots = append(slots, slot{keyNotes, attrValueString, a.Note})
	}
	if a.DefaultTransferUID != "" {
		slots = append(slots, slot{keyDefaultTransfer, attrValueGUID, a.DefaultTransferUID})
	}
	if len(slots) == 0 {
		return
	}
	x := e.x
	x.start(tagActSlots)
	for _, s := range slots {
		x.start(tagSlot)
		x.leaf(tagSlotKey, s.key)
		x.leaf(tagSlotValue, s.value, attrType, s.typ)
		x.end()
	}
	x.end()
}

func (e *encoder) transaction(t *gnc.Transaction) error {
	if t.Commodity == nil {
		return fmt.Errorf("transaction %s has no currency", t.UID)
	}
	x := e.x
	x.start(tagTransaction, attrVersion, bookVersion)
	x.leaf(tagTrnID, t.UID, attrType, attrValueGUID)
	x.start(tagTrnCurrency)
	e.commodityRef(t.Commodity)
	x.end()
	x.start(tagTrnDatePosted)
	x.leaf(tagTsDate, formatDateTime(t.TimePosted))
	x.end()
	x.start(tagTrnDateEntered)
	x.leaf(tagTsDate, formatDateTime(t.TimeEntered))
	x.end()
	x.leaf(tagTrnDescription, t.Description)

	if t.Note != "" || t.ScheduledActionUID != "" {
		x.start(tagTrnSlots)
		if t.Note != "" {
			x.start(tagSlot)
			x.leaf(tagSlotKey, keyNotes)
			x.leaf(tagSlotValue, t.Note, attrType, attrValueString)
			x.end()
		}
		if t.ScheduledActionUID != "" {
			x.start(tagSlot)
			x.leaf(tagSlotKey, keyFromSchedAction)
			x.leaf(tagSlotValue, t.ScheduledActionUID, attrType, attrValueGUID)
			x.end()
		}
		x.end()
	}

	x.start(tagTrnSplits)
	for _, s := range t.Splits {
		e.split(t, s)
	}
	x.end()
	x.end()
	return nil
}

func (e *encoder) split(t *gnc.Transaction, s *gnc.Split) {
	x := e.x
	credit := s.Type == gnc.SplitCredit
	x.start(tagTrnSplit)
	x.leaf(tagSplitID, s.UID, attrType, attrValueGUID)
	if s.Memo != "" {
		x.leaf(tagSplitMemo, s.Memo)
	}
	if s.Reconciled {
		x.leaf(tagSplitReconciled, "y")
	} else {
		x.leaf(tagSplitReconciled, "n")
	}
	if t.Template {
		// template amounts live in the sched-xaction slot frame; the plain
		// value stays zero so a naive reader sees a balanced transaction.
		x.leaf(tagSplitValue, "0/100")
		x.leaf(tagSplitQuantity, "0/100")
	} else {
		x.leaf(tagSplitValue, fractionString(s.Value, credit))
		x.leaf(tagSplitQuantity, fractionString(s.Quantity, credit))
	}
	x.leaf(tagSplitAccount, e.splitAccountUID(t, s), attrType, attrValueGUID)
	if t.Template {
		e.templateSplitSlots(t, s)
	}
	x.end()
}

// splitAccountUID returns the account reference a split travels with: the
// real account for regular splits, the synthesized backing account for
// template splits.
func (e *encoder) splitAccountUID(t *gnc.Transaction, s *gnc.Split) string {
	if t.Template {
		if uid, ok := e.templAcct[t.UID]; ok {
			return uid
		}
	}
	return s.AccountUID
}

func (e *encoder) templateSplitSlots(t *gnc.Transaction, s *gnc.Split) {
	digits := int32(2)
	if t.Commodity != nil {
		digits = t.Commodity.SmallestFractionDigits()
	}
	formulaKey, numericKey := keyDebitFormula, keyDebitNumeric
	if s.Type == gnc.SplitCredit {
		formulaKey, numericKey = keyCreditFormula, keyCreditNumeric
	}

	x := e.x
	x.start(tagSplitSlots)
	x.start(tagSlot)
	x.leaf(tagSlotKey, keySchedXaction)
	x.start(tagSlotValue, attrType, attrValueFrame)
	x.start(tagSlot)
	x.leaf(tagSlotKey, keySplitAccount)
	x.leaf(tagSlotValue, s.AccountUID, attrType, attrValueGUID)
	x.end()
	x.start(tagSlot)
	x.leaf(tagSlotKey, formulaKey)
	x.leaf(tagSlotValue, formatTemplateAmount(s.Value, digits), attrType, attrValueString)
	x.end()
	x.start(tagSlot)
	x.leaf(tagSlotKey, numericKey)
	x.leaf(tagSlotValue, s.Value.Abs().String(), attrType, attrValueNumeric)
	x.end()
	x.end() // slot:value frame
	x.end() // slot
	x.end() // split:slots
}

// templateSection writes the backing accounts and the template transactions
// themselves. Each template transaction gets a synthesized BANK account,
// child of a synthesized ROOT, all denominated in the reserved template
// commodity; the split account references inside the section point at these
// accounts, which is what ties a scheduled action to its template.
func (e *encoder) templateSection() error {
	x := e.x
	x.start(tagTemplateTransactions)

	templateRoot := gnc.NewAccount(gnc.RootAccountName, gnc.AccountTypeRoot)
	templateRoot.Commodity = gnc.TemplateCommodity()
	e.templateAccount(templateRoot, "")

	e.templAcct = make(map[string]string, len(e.book.TemplateTransactions))
	for _, t := range e.book.TemplateTransactions {
		backing := gnc.NewAccount(t.UID, gnc.AccountTypeBank)
		backing.Commodity = gnc.TemplateCommodity()
		e.templateAccount(backing, templateRoot.UID)
		e.templAcct[t.UID] = backing.UID
	}

	for _, t := range e.book.TemplateTransactions {
		if err := e.transaction(t); err != nil {
			return err
		}
		if err := e.check(); err != nil {
			return err
		}
	}
	x.end()
	return nil
}

func (e *encoder) templateAccount(a *gnc.Account, parentUID string) {
	x := e.x
	x.start(tagAccount, attrVersion, bookVersion)
	x.leaf(tagActName, a.Name)
	x.leaf(tagActID, a.UID, attrType, attrValueGUID)
	x.leaf(tagActType, string(a.Type))
	x.start(tagActCommodity)
	x.leaf(tagCmdtySpace, a.Commodity.Namespace)
	x.leaf(tagCmdtyID, a.Commodity.Mnemonic)
	x.end()
	x.leaf(tagActCommoditySCU, strconv.FormatInt(a.Commodity.SmallestFraction, 10))
	if parentUID != "" {
		x.leaf(tagActParent, parentUID, attrType, attrValueGUID)
	}
	x.end()
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

func (e *encoder) scheduledAction(s *gnc.ScheduledAction) {
	x := e.x
	x.start(tagSchedXaction, attrVersion, recurrenceVersion)
	x.leaf(tagSxID, s.UID, attrType, attrValueGUID)
	x.leaf(tagSxName, e.scheduleName(s))
	x.leaf(tagSxEnabled, yesNo(s.Enabled))
	x.leaf(tagSxAutoCreate, yesNo(s.AutoCreate))
	x.leaf(tagSxAutoNotify, yesNo(s.AutoNotify))
	x.leaf(tagSxAdvanceCreate, strconv.Itoa(s.AdvanceCreateDays))
	x.leaf(tagSxAdvanceRemind, strconv.Itoa(s.AdvanceNotifyDays))
	x.leaf(tagSxInstanceCount, strconv.Itoa(s.ExecutionCount))
	x.start(tagSxStart)
	x.leaf(tagGDate, formatDateTime(s.StartTime))
	x.end()
	if !s.LastRunTime.IsZero() {
		x.start(tagSxLast)
		x.leaf(tagGDate, formatDateTime(s.LastRunTime))
		x.end()
	}
	if !s.EndTime.IsZero() {
		x.start(tagSxEnd)
		x.leaf(tagGDate, formatDateTime(s.EndTime))
		x.end()
	} else {
		if s.TotalPlannedCount > 0 {
			x.leaf(tagSxNumOccur, strconv.Itoa(s.TotalPlannedCount))
		}
		if remaining := s.TotalPlannedCount - s.ExecutionCount; remaining > 0 {
			x.leaf(tagSxRemOccur, strconv.Itoa(remaining))
		}
	}
	if s.Tag != "" {
		x.leaf(tagSxTag, s.Tag)
	}
	x.leaf(tagSxTemplAccount, e.templateAccountUID(s), attrType, attrValueGUID)
	x.start(tagSxSchedule)
	e.recurrence(tagRecurrence, s.Recurrence)
	x.end()
	x.end()
}

// scheduleName labels a scheduled action: the description of the template
// transaction it creates, or the action type when there is none.
func (e *encoder) scheduleName(s *gnc.ScheduledAction) string {
	if s.ActionType == gnc.ActionTransaction {
		if t := e.book.TemplateTransaction(s.ActionUID); t != nil {
			return t.Description
		}
	}
	return string(s.ActionType)
}

func (e *encoder) templateAccountUID(s *gnc.ScheduledAction) string {
	if uid, ok := e.templAcct[s.ActionUID]; ok {
		return uid
	}
	return gnc.NewUID()
}

func (e *encoder) recurrence(tag string, r *gnc.Recurrence) {
	if r == nil {
		r = gnc.NewRecurrence()
	}
	x := e.x
	x.start(tag, attrVersion, recurrenceVersion)
	x.leaf(tagRecurrenceMult, strconv.Itoa(r.Multiplier))
	x.leaf(tagRecurrencePeriodType, string(r.PeriodType))
	if !r.PeriodStart.IsZero() {
		x.start(tagRecurrenceStart)
		x.leaf(tagGDate, r.PeriodStart.Format(gdateLayout))
		x.end()
	}
	if r.WeekendAdjust != gnc.WeekendNone {
		x.leaf(tagRecurrenceWeekendAdj, string(r.WeekendAdjust))
	}
	x.end()
}

func (e *encoder) budget(b *gnc.Budget) {
	x := e.x
	x.start(tagBudget, attrVersion, bookVersion)
	x.leaf(tagBudgetID, b.UID, attrType, attrValueGUID)
	x.leaf(tagBudgetName, b.Name)
	if b.Description != "" {
		x.leaf(tagBudgetDescription, b.Description)
	}
	x.leaf(tagBudgetNumPeriods, strconv.FormatInt(b.NumberOfPeriods, 10))
	e.recurrence(tagBudgetRecurrence, b.Recurrence)

	order, byAccount := b.AmountsByAccount()
	if len(order) > 0 {
		x.start(tagBudgetSlots)
		for _, accountUID := range order {
			x.start(tagSlot)
			x.leaf(tagSlotKey, accountUID)
			x.start(tagSlotValue, attrType, attrValueFrame)
			for _, amount := range byAccount[accountUID] {
				x.start(tagSlot)
				x.leaf(tagSlotKey, strconv.FormatInt(amount.PeriodNum, 10))
				x.leaf(tagSlotValue, amount.Amount.String(), attrType, attrValueNumeric)
				x.end()
			}
			x.end()
			x.end()
		}
		x.end()
	}
	x.end()
}
