package domain

import "github.com/shopspring/decimal"

// Display renders minor units as a fixed two-decimal amount followed by the
// currency code, e.g. "12.50 USD".
func (m Money) Display() string {
	amount := decimal.New(m.AmountCents, -2).StringFixed(2)
	if m.Currency == "" {
		return amount
	}
	return amount + " " + m.Currency
}

// TotalDisplay returns "-" for orders that are not priced yet.
func (o Order) TotalDisplay() string {
	if o.TotalMoney == nil {
		return "-"
	}
	return o.TotalMoney.Display()
}
