package gncxml

import (
	"sync"
	"time"

	"github.com/finledger/gnc"
)

// Listener receives progress events while a book is decoded or encoded.
// Callbacks run on the goroutine doing the pass; implementations that feed a
// UI must marshal to their own context. Events never alter codec output.
type Listener interface {
	OnBook(*gnc.Book)
	OnAccount(*gnc.Account)
	OnTransaction(*gnc.Transaction)
	OnCommodity(*gnc.Commodity)
	OnPrice(*gnc.Price)
	OnSchedule(*gnc.ScheduledAction)
	OnBudget(*gnc.Budget)

	OnBookCount(int64)
	OnAccountCount(int64)
	OnTransactionCount(int64)
	OnCommodityCount(int64)
	OnPriceCount(int64)
	OnScheduleCount(int64)
	OnBudgetCount(int64)
}

// NopListener implements Listener with no-ops; embed it to implement only
// the callbacks of interest.
type NopListener struct{}

func (NopListener) OnBook(*gnc.Book)                   {}
func (NopListener) OnAccount(*gnc.Account)             {}
func (NopListener) OnTransaction(*gnc.Transaction)     {}
func (NopListener) OnCommodity(*gnc.Commodity)         {}
func (NopListener) OnPrice(*gnc.Price)                 {}
func (NopListener) OnSchedule(*gnc.ScheduledAction)    {}
func (NopListener) OnBudget(*gnc.Budget)               {}
func (NopListener) OnBookCount(int64)                  {}
func (NopListener) OnAccountCount(int64)               {}
func (NopListener) OnTransactionCount(int64)           {}
func (NopListener) OnCommodityCount(int64)             {}
func (NopListener) OnPriceCount(int64)                 {}
func (NopListener) OnScheduleCount(int64)              {}
func (NopListener) OnBudgetCount(int64)                {}

// Throttle wraps a listener so that per-entity callbacks of the same kind
// are dropped within the given window. Count callbacks and OnBook always
// pass through.
func Throttle(l Listener, window time.Duration) Listener {
	return &throttled{inner: l, window: window, last: make(map[string]time.Time)}
}

type throttled struct {
	inner  Listener
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func (t *throttled) allow(kind string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if now.Sub(t.last[kind]) < t.window {
		return false
	}
	t.last[kind] = now
	return true
}

func (t *throttled) OnBook(b *gnc.Book) { t.inner.OnBook(b) }

func (t *throttled) OnAccount(a *gnc.Account) {
	if t.allow("account") {
		t.inner.OnAccount(a)
	}
}

func (t *throttled) OnTransaction(x *gnc.Transaction) {
	if t.allow("transaction") {
		t.inner.OnTransaction(x)
	}
}

func (t *throttled) OnCommodity(c *gnc.Commodity) {
	if t.allow("commodity") {
		t.inner.OnCommodity(c)
	}
}

func (t *throttled) OnPrice(p *gnc.Price) {
	if t.allow("price") {
		t.inner.OnPrice(p)
	}
}

func (t *throttled) OnSchedule(s *gnc.ScheduledAction) {
	if t.allow("schedule") {
		t.inner.OnSchedule(s)
	}
}

func (t *throttled) OnBudget(b *gnc.Budget) {
	if t.allow("budget") {
		t.inner.OnBudget(b)
	}
}

func (t *throttled) OnBookCount(n int64)        { t.inner.OnBookCount(n) }
func (t *throttled) OnAccountCount(n int64)     { t.inner.OnAccountCount(n) }
func (t *throttled) OnTransactionCount(n int64) { t.inner.OnTransactionCount(n) }
func (t *throttled) OnCommodityCount(n int64)   { t.inner.OnCommodityCount(n) }
func (t *throttled) OnPriceCount(n int64)       { t.inner.OnPriceCount(n) }
func (t *throttled) OnScheduleCount(n int64)    { t.inner.OnScheduleCount(n) }
func (t *throttled) OnBudgetCount(n int64)      { t.inner.OnBudgetCount(n) }
