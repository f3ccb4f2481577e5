package service

import (
	"sort"
	"time"

	"restaurant-sync/sync-svc/internal/domain"
)

// timestampLayouts covers what the API emits: RFC 3339 with or without a
// zone offset, and bare dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// sortKey parses a timestamp for ordering only. Anything unparsable sorts as
// the Unix epoch.
func sortKey(value string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

// KitchenQueue returns the orders with exactly the given status, newest first.
func KitchenQueue(orders []domain.Order, status domain.OrderStatus) []domain.Order {
	return newestFirst(filterOrders(orders, func(o domain.Order) bool { return o.Status == status }))
}

// TableOrders returns the orders placed on tableID, newest first.
func TableOrders(orders []domain.Order, tableID string) []domain.Order {
	return newestFirst(filterOrders(orders, func(o domain.Order) bool { return o.TableID == tableID }))
}

// Registry orders tables by openedAt descending, then tableId descending, so
// rows keep a stable position when timestamps collide or are missing.
func Registry(tables []domain.Table) []domain.Table {
	out := make([]domain.Table, len(tables))
	copy(out, tables)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := sortKey(out[i].OpenedAt), sortKey(out[j].OpenedAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].TableID > out[j].TableID
	})
	return out
}

func filterOrders(orders []domain.Order, keep func(domain.Order) bool) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if keep(order) {
			out = append(out, order)
		}
	}
	return out
}

// newestFirst sorts by createdAt descending; orderId descending breaks ties
// so map iteration order never leaks into the result.
func newestFirst(orders []domain.Order) []domain.Order {
	sort.SliceStable(orders, func(i, j int) bool {
		ti, tj := sortKey(orders[i].CreatedAt), sortKey(orders[j].CreatedAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return orders[i].OrderID > orders[j].OrderID
	})
	return orders
}

// Projector recomputes every view from the current store contents on each
// call. Nothing is cached.
type Projector struct {
	store EntityStore
}

func NewProjector(store EntityStore) *Projector {
	return &Projector{store: store}
}

func (p *Projector) KitchenQueue(status domain.OrderStatus) []domain.Order {
	return KitchenQueue(p.store.Orders(), status)
}

func (p *Projector) TableOrders(tableID string) []domain.Order {
	return TableOrders(p.store.Orders(), tableID)
}

func (p *Projector) Registry() []domain.Table {
	return Registry(p.store.Tables())
}

func (p *Projector) Table(tableID string) (domain.Table, bool) {
	return p.store.Table(tableID)
}
