package gnc

import (
	"math/rand"
	"testing"
)

func TestTransactionBalance(t *testing.T) {
	txn := NewTransaction("groceries", NewCurrency("EUR"))
	txn.AddSplit(&Split{Value: Numeric{1000, 100}, Type: SplitDebit, AccountUID: "a"})
	txn.AddSplit(&Split{Value: Numeric{700, 100}, Type: SplitCredit, AccountUID: "b"})

	if got := txn.Balance(); !got.Equal(Numeric{300, 100}) {
		t.Errorf("Balance() = %v, want 300/100", got)
	}
}

func TestCreateAutoBalanceSplit(t *testing.T) {
	t.Run("unbalanced transaction gets a credit counterweight", func(t *testing.T) {
		txn := NewTransaction("lunch", NewCurrency("USD"))
		txn.AddSplit(&Split{Value: Numeric{1000, 100}, Type: SplitDebit, AccountUID: "a"})
		txn.AddSplit(&Split{Value: Numeric{700, 100}, Type: SplitCredit, AccountUID: "b"})

		split := txn.CreateAutoBalanceSplit()
		if split == nil {
			t.Fatal("expected a balancing split")
		}
		if split.Type != SplitCredit {
			t.Errorf("split type = %v, want CREDIT", split.Type)
		}
		if !split.Value.Equal(Numeric{300, 100}) {
			t.Errorf("split value = %v, want 300/100", split.Value)
		}
		if split.AccountUID != "" {
			t.Errorf("balancing split should have no account yet, got %q", split.AccountUID)
		}
		if !txn.Balance().IsZero() {
			t.Errorf("transaction still unbalanced: %v", txn.Balance())
		}
		if len(txn.Splits) != 3 {
			t.Errorf("split count = %d, want 3", len(txn.Splits))
		}
	})

	t.Run("credit surplus gets a debit counterweight", func(t *testing.T) {
		txn := NewTransaction("refund", NewCurrency("USD"))
		txn.AddSplit(&Split{Value: Numeric{500, 100}, Type: SplitCredit, AccountUID: "a"})

		split := txn.CreateAutoBalanceSplit()
		if split == nil {
			t.Fatal("expected a balancing split")
		}
		if split.Type != SplitDebit {
			t.Errorf("split type = %v, want DEBIT", split.Type)
		}
	})

	t.Run("balanced transaction is untouched", func(t *testing.T) {
		txn := NewTransaction("even", NewCurrency("USD"))
		txn.AddSplit(&Split{Value: Numeric{500, 100}, Type: SplitDebit, AccountUID: "a"})
		txn.AddSplit(&Split{Value: Numeric{500, 100}, Type: SplitCredit, AccountUID: "b"})

		if split := txn.CreateAutoBalanceSplit(); split != nil {
			t.Errorf("unexpected balancing split %v", split)
		}
		if len(txn.Splits) != 2 {
			t.Errorf("split count = %d, want 2", len(txn.Splits))
		}
	})

	t.Run("templates are never balanced", func(t *testing.T) {
		txn := NewTransaction("template", NewCurrency("USD"))
		txn.Template = true
		txn.AddSplit(&Split{Value: Numeric{500, 100}, Type: SplitDebit, AccountUID: "a"})

		if split := txn.CreateAutoBalanceSplit(); split != nil {
			t.Errorf("unexpected balancing split %v", split)
		}
	})
}

func TestSignedValue(t *testing.T) {
	debit := &Split{Value: Numeric{250, 100}, Type: SplitDebit}
	credit := &Split{Value: Numeric{250, 100}, Type: SplitCredit}

	if got := debit.SignedValue(); got.Sign() != 1 {
		t.Errorf("debit signed value = %v, want positive", got)
	}
	if got := credit.SignedValue(); got.Sign() != -1 {
		t.Errorf("credit signed value = %v, want negative", got)
	}
}

func TestAutoBalanceRandomSplits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		txn := NewTransaction("random", NewCurrency("EUR"))
		n := 1 + rng.Intn(6)
		for j := 0; j < n; j++ {
			s := &Split{Value: Numeric{Num: int64(rng.Intn(100000)), Denom: 100}, AccountUID: "a"}
			if rng.Intn(2) == 0 {
				s.Type = SplitCredit
			} else {
				s.Type = SplitDebit
			}
			txn.AddSplit(s)
		}

		wasBalanced := txn.Balance().IsZero()
		split := txn.CreateAutoBalanceSplit()
		if wasBalanced && split != nil {
			t.Fatalf("case %d: balancing split added to a balanced transaction", i)
		}
		if !wasBalanced && split == nil {
			t.Fatalf("case %d: no balancing split for an unbalanced transaction", i)
		}
		if got := txn.Balance(); !got.IsZero() {
			t.Fatalf("case %d: balance %v after auto-balance", i, got)
		}
	}
}
