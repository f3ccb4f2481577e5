package storage

import (
	"slices"
	"sync"

	"restaurant-sync/sync-svc/internal/domain"
)

// Store is the keyed entity store for one view. It owns every Order and Table
// record; mutations are visible to readers as soon as the call returns.
type Store struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	tables map[string]domain.Table
}

func NewStore() *Store {
	return &Store{
		orders: make(map[string]domain.Order),
		tables: make(map[string]domain.Table),
	}
}

// UpsertOrder replaces any stored order with the same id. Orders without an
// id are ignored.
func (s *Store) UpsertOrder(order domain.Order) bool {
	if order.OrderID == "" {
		return false
	}
	order = cloneOrder(order)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = order
	return true
}

func (s *Store) UpsertTable(table domain.Table) bool {
	if table.TableID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table.TableID] = table
	return true
}

// PatchTable overlays the non-nil patch fields on a known table. Unknown
// tables are never synthesized from a partial signal.
func (s *Store) PatchTable(tableID string, patch domain.TablePatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[tableID]
	if !ok {
		return false
	}
	if patch.Status != nil {
		table.Status = *patch.Status
	}
	if patch.ClosedAt != nil {
		table.ClosedAt = *patch.ClosedAt
	}
	if patch.LastOrderAt != nil {
		table.LastOrderAt = *patch.LastOrderAt
	}
	s.tables[tableID] = table
	return true
}

// ReplaceTables swaps the whole table map for the given rows.
func (s *Store) ReplaceTables(tables []domain.Table) {
	next := make(map[string]domain.Table, len(tables))
	for _, table := range tables {
		if table.TableID == "" {
			continue
		}
		next[table.TableID] = table
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = next
}

func (s *Store) Order(orderID string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, false
	}
	return cloneOrder(order), true
}

func (s *Store) Table(tableID string) (domain.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.tables[tableID]
	return table, ok
}

// Orders returns a copy of every stored order in no particular order.
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, cloneOrder(order))
	}
	return out
}

func (s *Store) Tables() []domain.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Table, 0, len(s.tables))
	for _, table := range s.tables {
		out = append(out, table)
	}
	return out
}

func cloneOrder(order domain.Order) domain.Order {
	if order.TotalMoney != nil {
		money := *order.TotalMoney
		order.TotalMoney = &money
	}
	order.Lines = slices.Clone(order.Lines)
	if order.Lines == nil {
		order.Lines = []domain.OrderLine{}
	}
	return order
}
