package gncxml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/finledger/gnc"
)

type recordingListener struct {
	NopListener
	accounts int
	txns     int
	counts   int
	books    int
}

func (r *recordingListener) OnAccount(*gnc.Account)         { r.accounts++ }
func (r *recordingListener) OnTransaction(*gnc.Transaction) { r.txns++ }
func (r *recordingListener) OnAccountCount(int64)           { r.counts++ }
func (r *recordingListener) OnBook(*gnc.Book)               { r.books++ }

func TestThrottleCoalescesPerKind(t *testing.T) {
	rec := &recordingListener{}
	l := Throttle(rec, time.Hour)

	a := gnc.NewAccount("A", gnc.AccountTypeBank)
	for i := 0; i < 5; i++ {
		l.OnAccount(a)
	}
	assert.Equal(t, 1, rec.accounts, "repeats inside the window are dropped")

	// a different kind has its own window
	l.OnTransaction(gnc.NewTransaction("t", gnc.NewCurrency("EUR")))
	assert.Equal(t, 1, rec.txns)
}

func TestThrottlePassesCountsAndBook(t *testing.T) {
	rec := &recordingListener{}
	l := Throttle(rec, time.Hour)

	l.OnAccountCount(3)
	l.OnAccountCount(4)
	assert.Equal(t, 2, rec.counts, "counts are never throttled")

	l.OnBook(gnc.NewBook())
	l.OnBook(gnc.NewBook())
	assert.Equal(t, 2, rec.books, "the final book always reaches the listener")
}
