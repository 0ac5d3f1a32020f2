package gnc

import "testing"

// buildTree makes a small book: Root > Assets > Bank > Checking.
func buildTree(t *testing.T) (*Book, map[string]*Account) {
	t.Helper()
	book := NewBook()
	root := NewAccount(RootAccountName, AccountTypeRoot)
	assets := NewAccount("Assets", AccountTypeAsset)
	assets.ParentUID = root.UID
	bank := NewAccount("Bank", AccountTypeBank)
	bank.ParentUID = assets.UID
	checking := NewAccount("Checking", AccountTypeBank)
	checking.ParentUID = bank.UID
	checking.Commodity = NewCurrency("EUR")
	for _, a := range []*Account{root, assets, bank, checking} {
		if err := book.AddAccount(a); err != nil {
			t.Fatal(err)
		}
	}
	return book, map[string]*Account{
		"root": root, "assets": assets, "bank": bank, "checking": checking,
	}
}

func TestBookRejectsSecondRoot(t *testing.T) {
	book := NewBook()
	if err := book.AddAccount(NewAccount(RootAccountName, AccountTypeRoot)); err != nil {
		t.Fatal(err)
	}
	if err := book.AddAccount(NewAccount("another root", AccountTypeRoot)); err == nil {
		t.Fatal("expected error adding a second ROOT account")
	}
}

func TestAccountFullName(t *testing.T) {
	book, accounts := buildTree(t)

	if got := book.AccountFullName(accounts["root"].UID); got != "" {
		t.Errorf("root full name = %q, want empty", got)
	}
	if got := book.AccountFullName(accounts["checking"].UID); got != "Assets:Bank:Checking" {
		t.Errorf("full name = %q, want Assets:Bank:Checking", got)
	}
	if got := book.AccountFullName("no-such-uid"); got != "" {
		t.Errorf("unknown uid full name = %q, want empty", got)
	}
}

func TestAccountsByFullName(t *testing.T) {
	book, _ := buildTree(t)
	extra := NewAccount("Aardvark Fund", AccountTypeExpense)
	extra.ParentUID = book.RootAccountUID
	if err := book.AddAccount(extra); err != nil {
		t.Fatal(err)
	}

	sorted := book.AccountsByFullName()
	if !sorted[0].IsRoot() {
		t.Fatal("ROOT must sort first")
	}
	for i := 2; i < len(sorted); i++ {
		a, b := book.AccountFullName(sorted[i-1].UID), book.AccountFullName(sorted[i].UID)
		if a > b {
			t.Errorf("order violated: %q before %q", a, b)
		}
	}
	// parents always precede children
	seen := map[string]bool{}
	for _, a := range sorted {
		if a.ParentUID != "" && !seen[a.ParentUID] {
			t.Errorf("account %q written before its parent", a.Name)
		}
		seen[a.UID] = true
	}
}

func TestCommoditiesInUse(t *testing.T) {
	book, accounts := buildTree(t)
	accounts["assets"].Commodity = NewCurrency("EUR")
	other := NewAccount("Broker", AccountTypeBank)
	other.ParentUID = book.RootAccountUID
	other.Commodity = NewCurrency("USD")
	if err := book.AddAccount(other); err != nil {
		t.Fatal(err)
	}
	tmpl := NewAccount("tmpl", AccountTypeBank)
	tmpl.Commodity = TemplateCommodity()
	if err := book.AddAccount(tmpl); err != nil {
		t.Fatal(err)
	}

	inUse := book.CommoditiesInUse()
	if len(inUse) != 2 {
		t.Fatalf("commodities in use = %d, want 2 (EUR, USD)", len(inUse))
	}
}
