package gnc

// CommodityStore is the persistent commodity lookup a resolver falls back to
// when the decode-scoped cache misses. Implementations must treat the
// CURRENCY and ISO4217 namespaces as aliases.
//
// A (nil, nil) return means the store does not know the pair.
type CommodityStore interface {
	Commodity(namespace, mnemonic string) (*Commodity, error)
}

// Resolver maps (namespace, mnemonic) pairs to commodities. It consults a
// decode-scoped cache of recently seen commodities first, then an optional
// persistent store, and finally creates ISO-4217 currencies lazily.
//
// Callers decide whether a nil result is fatal: an account or transaction
// referencing an unresolved commodity fails the decode, while a price
// referencing an unknown non-currency commodity is simply dropped.
type Resolver struct {
	cache map[string]map[string]*Commodity
	store CommodityStore
}

// NewResolver creates a resolver backed by the given store, which may be
// nil.
func NewResolver(store CommodityStore) *Resolver {
	return &Resolver{
		cache: make(map[string]map[string]*Commodity),
		store: store,
	}
}

// Put caches a commodity for the duration of the decode. Template
// placeholders are never cached.
func (r *Resolver) Put(c *Commodity) {
	if c == nil || c.IsTemplate() || c.Namespace == "" || c.Mnemonic == "" {
		return
	}
	byID := r.cache[c.Namespace]
	if byID == nil {
		byID = make(map[string]*Commodity)
		r.cache[c.Namespace] = byID
	}
	byID[c.Mnemonic] = c
}

func (r *Resolver) cached(namespace, mnemonic string) *Commodity {
	byID := r.cache[namespace]
	if byID == nil {
		// The two currency namespaces are aliases of one another.
		switch namespace {
		case NamespaceCurrency:
			byID = r.cache[NamespaceISO4217]
		case NamespaceISO4217:
			byID = r.cache[NamespaceCurrency]
		}
	}
	if byID == nil {
		return nil
	}
	return byID[mnemonic]
}

// Resolve returns the commodity for the pair, or nil if neither the cache
// nor the store knows it and it cannot be created lazily. The error reports
// store failures only, never a plain miss.
func (r *Resolver) Resolve(namespace, mnemonic string) (*Commodity, error) {
	if namespace == "" || mnemonic == "" {
		return nil, nil
	}
	if c := r.cached(namespace, mnemonic); c != nil {
		return c, nil
	}
	if r.store != nil {
		c, err := r.store.Commodity(namespace, mnemonic)
		if err != nil {
			return nil, err
		}
		if c != nil {
			r.Put(c)
			return c, nil
		}
	}
	// Currencies are well known: create them on first sight so documents
	// that reference ISO-4217 codes without declaring them still decode.
	if IsCurrencyNamespace(namespace) {
		c := NewCurrency(mnemonic)
		r.Put(c)
		return c, nil
	}
	return nil, nil
}
