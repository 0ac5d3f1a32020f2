package gnc

import (
	"math"

	"github.com/Rhymond/go-money"
)

// Commodity namespaces with special meaning in the file format.
const (
	NamespaceISO4217  = "ISO4217"
	NamespaceCurrency = "CURRENCY"
	NamespaceTemplate = "template"
)

// Commodity is a tradable unit of value, a currency or a security, identified
// by (namespace, mnemonic). The "CURRENCY" and "ISO4217" namespaces are
// aliases of one another.
type Commodity struct {
	Namespace        string
	Mnemonic         string
	Fullname         string
	SmallestFraction int64 // e.g. 100 for cent-denominated currencies
	Cusip            string
	QuoteSource      string
	QuoteTimeZone    string
}

// NewCurrency builds a commodity for an ISO-4217 currency code. The smallest
// fraction is taken from the currency's registered fraction digits, falling
// back to 100 for codes the currency table does not know.
func NewCurrency(code string) *Commodity {
	fraction := int64(100)
	if cur := money.GetCurrency(code); cur != nil {
		fraction = pow10(cur.Fraction)
	}
	return &Commodity{
		Namespace:        NamespaceCurrency,
		Mnemonic:         code,
		SmallestFraction: fraction,
	}
}

// TemplateCommodity returns the reserved placeholder commodity assigned to
// accounts backing scheduled-transaction templates.
func TemplateCommodity() *Commodity {
	return &Commodity{
		Namespace:        NamespaceTemplate,
		Mnemonic:         NamespaceTemplate,
		Cusip:            NamespaceTemplate,
		SmallestFraction: 1,
	}
}

// IsCurrencyNamespace reports whether the namespace denotes an ISO-4217
// currency under either of its two aliases.
func IsCurrencyNamespace(namespace string) bool {
	return namespace == NamespaceCurrency || namespace == NamespaceISO4217
}

// IsCurrency reports whether the commodity is an ISO-4217 currency.
func (c *Commodity) IsCurrency() bool { return IsCurrencyNamespace(c.Namespace) }

// IsTemplate reports whether this is the reserved template commodity.
func (c *Commodity) IsTemplate() bool { return c.Namespace == NamespaceTemplate }

// CurrencyCode returns the commodity mnemonic, which for currencies is the
// ISO-4217 code.
func (c *Commodity) CurrencyCode() string { return c.Mnemonic }

// SmallestFractionDigits returns the number of decimal digits needed to
// represent the smallest fraction, e.g. 2 for a fraction of 100.
func (c *Commodity) SmallestFractionDigits() int32 {
	if c.SmallestFraction <= 1 {
		return 0
	}
	return int32(math.Round(math.Log10(float64(c.SmallestFraction))))
}

// Same reports whether the two commodities share an identity, treating the
// CURRENCY and ISO4217 namespaces as equal.
func (c *Commodity) Same(o *Commodity) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Mnemonic != o.Mnemonic {
		return false
	}
	if c.Namespace == o.Namespace {
		return true
	}
	return IsCurrencyNamespace(c.Namespace) && IsCurrencyNamespace(o.Namespace)
}

func pow10(digits int) int64 {
	n := int64(1)
	for i := 0; i < digits; i++ {
		n *= 10
	}
	return n
}
