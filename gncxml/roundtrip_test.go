package gncxml

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/gnc"
)

// buildBook assembles a book exercising every entity kind the format
// carries.
func buildBook(t *testing.T) *gnc.Book {
	t.Helper()
	book := gnc.NewBook()

	eur := gnc.NewCurrency("EUR")
	root := gnc.NewAccount(gnc.RootAccountName, gnc.AccountTypeRoot)
	root.Commodity = eur
	root.Hidden = true

	checking := gnc.NewAccount("Checking", gnc.AccountTypeBank)
	checking.Commodity = eur
	checking.ParentUID = root.UID
	checking.Description = "daily account"
	require.NoError(t, checking.SetColor("#336699"))

	rent := gnc.NewAccount("Rent", gnc.AccountTypeExpense)
	rent.Commodity = eur
	rent.ParentUID = root.UID
	rent.Placeholder = false
	rent.Note = "due on the 5th"

	for _, a := range []*gnc.Account{root, checking, rent} {
		require.NoError(t, book.AddAccount(a))
	}

	posted := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	txn := gnc.NewTransaction("March rent", eur)
	txn.TimePosted = posted
	txn.TimeEntered = posted
	txn.Note = "paid by wire"
	debit := gnc.NewSplit(gnc.Numeric{Num: 90000, Denom: 100}, rent.UID)
	debit.Memo = "warm rent"
	credit := gnc.NewSplit(gnc.Numeric{Num: 90000, Denom: 100}, checking.UID)
	credit.Type = gnc.SplitCredit
	credit.Reconciled = true
	txn.AddSplit(debit)
	txn.AddSplit(credit)
	book.Transactions = append(book.Transactions, txn)

	tmpl := gnc.NewTransaction("Monthly rent", eur)
	tmpl.Template = true
	tmpl.TimePosted = posted
	tmpl.TimeEntered = posted
	tmplSplit := gnc.NewSplit(gnc.Numeric{Num: 90000, Denom: 100}, checking.UID)
	tmplSplit.Type = gnc.SplitCredit
	tmpl.AddSplit(tmplSplit)
	book.TemplateTransactions = append(book.TemplateTransactions, tmpl)

	sched := gnc.NewScheduledAction(gnc.ActionTransaction)
	sched.ActionUID = tmpl.UID
	sched.Enabled = true
	sched.AutoCreate = true
	sched.StartTime = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	sched.EndTime = time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC)
	sched.ExecutionCount = 3
	sched.Recurrence = &gnc.Recurrence{
		Multiplier:  1,
		PeriodType:  gnc.PeriodMonth,
		PeriodStart: sched.StartTime,
	}
	book.ScheduledActions = append(book.ScheduledActions, sched)

	price := gnc.NewPrice(eur, gnc.NewCurrency("USD"), posted, gnc.Numeric{Num: 108, Denom: 100})
	price.Source = "user:price-editor"
	book.Prices = append(book.Prices, price)

	budget := gnc.NewBudget("Household")
	budget.Description = "planned spending"
	budget.AddAmount(&gnc.BudgetAmount{AccountUID: rent.UID, PeriodNum: 0, Amount: gnc.Numeric{Num: 90000, Denom: 100}})
	budget.AddAmount(&gnc.BudgetAmount{AccountUID: rent.UID, PeriodNum: 1, Amount: gnc.Numeric{Num: 90000, Denom: 100}})
	book.Budgets = append(book.Budgets, budget)

	return book
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	book := buildBook(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(context.Background(), &buf, book))

	result, err := Decode(context.Background(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	got := result.Book

	require.Equal(t, book.UID, got.UID)
	require.Len(t, got.Accounts(), len(book.Accounts()))
	for _, want := range book.Accounts() {
		a := got.Account(want.UID)
		require.NotNil(t, a, "account %s lost in round trip", want.Name)
		assert.Equal(t, want.Name, a.Name)
		assert.Equal(t, want.Type, a.Type)
		assert.Equal(t, want.ParentUID, a.ParentUID)
		assert.Equal(t, want.Description, a.Description)
		assert.Equal(t, want.Color, a.Color)
		assert.Equal(t, want.Note, a.Note)
		if want.Commodity != nil {
			assert.True(t, want.Commodity.Same(a.Commodity))
		}
	}

	require.Len(t, got.Transactions, 1)
	wantTxn, gotTxn := book.Transactions[0], got.Transactions[0]
	assert.Equal(t, wantTxn.UID, gotTxn.UID)
	assert.Equal(t, wantTxn.Description, gotTxn.Description)
	assert.Equal(t, wantTxn.Note, gotTxn.Note)
	assert.True(t, wantTxn.TimePosted.Equal(gotTxn.TimePosted))
	require.Len(t, gotTxn.Splits, 2)
	for i, wantSplit := range wantTxn.Splits {
		gotSplit := gotTxn.Splits[i]
		assert.Equal(t, wantSplit.UID, gotSplit.UID)
		assert.Equal(t, wantSplit.Memo, gotSplit.Memo)
		assert.Equal(t, wantSplit.Type, gotSplit.Type)
		assert.Equal(t, wantSplit.Reconciled, gotSplit.Reconciled)
		assert.True(t, wantSplit.Value.Equal(gotSplit.Value))
	}
	assert.True(t, gotTxn.Balance().IsZero())

	require.Len(t, got.TemplateTransactions, 1)
	gotTmpl := got.TemplateTransactions[0]
	assert.Equal(t, book.TemplateTransactions[0].UID, gotTmpl.UID)
	require.Len(t, gotTmpl.Splits, 1)
	assert.Equal(t, "Checking", got.Account(gotTmpl.Splits[0].AccountUID).Name)
	assert.True(t, gotTmpl.Splits[0].Value.Equal(gnc.Numeric{Num: 90000, Denom: 100}))
	assert.Equal(t, gnc.SplitCredit, gotTmpl.Splits[0].Type)

	require.Len(t, got.ScheduledActions, 1)
	gotSched := got.ScheduledActions[0]
	assert.Equal(t, book.ScheduledActions[0].UID, gotSched.UID)
	assert.Equal(t, book.TemplateTransactions[0].UID, gotSched.ActionUID)
	assert.True(t, gotSched.Enabled)
	assert.True(t, gotSched.AutoCreate)
	assert.Equal(t, 3, gotSched.ExecutionCount)
	assert.True(t, gotSched.EndTime.Equal(book.ScheduledActions[0].EndTime))
	require.NotNil(t, gotSched.Recurrence)
	assert.Equal(t, gnc.PeriodMonth, gotSched.Recurrence.PeriodType)

	require.Len(t, got.Prices, 1)
	gotPrice := got.Prices[0]
	assert.Equal(t, book.Prices[0].UID, gotPrice.UID)
	assert.Equal(t, "EUR", gotPrice.Commodity.CurrencyCode())
	assert.Equal(t, "USD", gotPrice.Currency.CurrencyCode())
	assert.True(t, gotPrice.Value.Equal(gnc.Numeric{Num: 108, Denom: 100}))

	require.Len(t, got.Budgets, 1)
	gotBudget := got.Budgets[0]
	assert.Equal(t, book.Budgets[0].UID, gotBudget.UID)
	assert.Equal(t, "Household", gotBudget.Name)
	assert.Equal(t, int64(12), gotBudget.NumberOfPeriods)
	require.Len(t, gotBudget.Amounts, 2)
	assert.Equal(t, book.Budgets[0].Amounts[0].AccountUID, gotBudget.Amounts[0].AccountUID)
	assert.True(t, gotBudget.Amounts[0].Amount.Equal(gnc.Numeric{Num: 90000, Denom: 100}))
}

func TestEncodeCancellation(t *testing.T) {
	book := buildBook(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := Encode(ctx, &buf, book)
	require.ErrorIs(t, err, context.Canceled)
}
