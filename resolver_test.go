package gnc

import "testing"

type mapStore struct {
	byKey map[string]*Commodity
}

func (s *mapStore) Commodity(namespace, mnemonic string) (*Commodity, error) {
	return s.byKey[namespace+":"+mnemonic], nil
}

func TestResolverCurrencyAliases(t *testing.T) {
	r := NewResolver(nil)
	eur := NewCurrency("EUR")
	r.Put(eur)

	got, err := r.Resolve(NamespaceISO4217, "EUR")
	if err != nil {
		t.Fatal(err)
	}
	if got != eur {
		t.Error("ISO4217 lookup should hit the CURRENCY cache entry")
	}
}

func TestResolverLazyCurrency(t *testing.T) {
	r := NewResolver(nil)
	got, err := r.Resolve(NamespaceCurrency, "JPY")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("known ISO currency should resolve without declaration")
	}
	if got.SmallestFraction != 1 {
		t.Errorf("JPY fraction = %d, want 1", got.SmallestFraction)
	}
}

func TestResolverStoreFallback(t *testing.T) {
	nvda := &Commodity{Namespace: "NASDAQ", Mnemonic: "NVDA", SmallestFraction: 10000}
	r := NewResolver(&mapStore{byKey: map[string]*Commodity{"NASDAQ:NVDA": nvda}})

	got, err := r.Resolve("NASDAQ", "NVDA")
	if err != nil {
		t.Fatal(err)
	}
	if got != nvda {
		t.Error("store-known commodity should resolve")
	}

	miss, err := r.Resolve("NASDAQ", "NOPE")
	if err != nil {
		t.Fatal(err)
	}
	if miss != nil {
		t.Errorf("unknown non-currency resolved to %v", miss)
	}
}

func TestResolverTemplateNeverCached(t *testing.T) {
	r := NewResolver(nil)
	r.Put(TemplateCommodity())
	got, err := r.Resolve(NamespaceTemplate, NamespaceTemplate)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("template commodity must not resolve")
	}
}
