package domain

import (
	"bytes"
	"encoding/json"
)

// Fields is a loosely decoded JSON object. Every inbound payload, whether a
// REST row or a streamed event, is read through it so that missing or
// mistyped values fall back to the same defaults everywhere.
type Fields map[string]json.RawMessage

// DecodeFields returns false when raw is absent, null or not a JSON object.
func DecodeFields(raw json.RawMessage) (Fields, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	return f, true
}

// Str returns the string value at key, or "" when it is missing or not a string.
func (f Fields) Str(key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (f Fields) Int(key string) int64 {
	raw, ok := f[key]
	if !ok {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return int64(n)
}

func (f Fields) Object(key string) (Fields, bool) {
	return DecodeFields(f[key])
}

func (f Fields) Array(key string) ([]json.RawMessage, bool) {
	raw := bytes.TrimSpace(f[key])
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// OrderFromFields applies the order schema defaults: absent money stays nil,
// absent lines become an empty slice, missing strings become "".
// REST rows carry the money under "total", stream payloads under "totalMoney".
func OrderFromFields(f Fields) Order {
	order := Order{
		OrderID:   f.Str("orderId"),
		TableID:   f.Str("tableId"),
		Status:    OrderStatus(f.Str("status")),
		CreatedAt: f.Str("createdAt"),
		Lines:     []OrderLine{},
	}
	if m, ok := f.Object("totalMoney"); ok {
		order.TotalMoney = moneyFromFields(m)
	} else if m, ok := f.Object("total"); ok {
		order.TotalMoney = moneyFromFields(m)
	}
	if items, ok := f.Array("lines"); ok {
		for _, item := range items {
			lf, ok := DecodeFields(item)
			if !ok {
				continue
			}
			order.Lines = append(order.Lines, OrderLine{
				LineID:   lf.Str("lineId"),
				ItemID:   lf.Str("itemId"),
				Name:     lf.Str("name"),
				Quantity: int(lf.Int("quantity")),
			})
		}
	}
	return order
}

// TableFromFields reads a registry row or a table summary response.
func TableFromFields(f Fields) Table {
	table := Table{
		TableID:      f.Str("tableId"),
		RestaurantID: f.Str("restaurantId"),
		Status:       TableStatus(f.Str("status")),
		OpenedAt:     f.Str("openedAt"),
		ClosedAt:     f.Str("closedAt"),
		LastOrderAt:  f.Str("lastOrderAt"),
	}
	if m, ok := f.Object("totals"); ok {
		table.Totals = *moneyFromFields(m)
	}
	if c, ok := f.Object("counts"); ok {
		table.Counts = TableCounts{
			OrdersTotal: int(c.Int("ordersTotal")),
			Placed:      int(c.Int("placed")),
			Accepted:    int(c.Int("accepted")),
			Ready:       int(c.Int("ready")),
		}
	}
	return table
}

// OpenedTable synthesizes the row for a table.opened event. Aggregates start
// at zero until the next summary refresh; restaurantId falls back to the
// envelope's restaurant.
func OpenedTable(f Fields, restaurantID string) Table {
	table := Table{
		TableID:      f.Str("tableId"),
		RestaurantID: f.Str("restaurantId"),
		Status:       TableOpen,
		OpenedAt:     f.Str("openedAt"),
	}
	if table.RestaurantID == "" {
		table.RestaurantID = restaurantID
	}
	return table
}

func moneyFromFields(f Fields) *Money {
	return &Money{
		AmountCents: f.Int("amountCents"),
		Currency:    f.Str("currency"),
	}
}
