package gnc

import "time"

// Price records the value of a commodity expressed in a currency at a point
// in time, e.g. one share of a stock in EUR.
type Price struct {
	UID       string
	Commodity *Commodity
	Currency  *Commodity
	Date      time.Time
	Source    string
	Type      string
	Value     Numeric
}

// NewPrice creates a price entry with a fresh UID.
func NewPrice(commodity, currency *Commodity, date time.Time, value Numeric) *Price {
	return &Price{
		UID:       NewUID(),
		Commodity: commodity,
		Currency:  currency,
		Date:      date,
		Value:     value,
	}
}
