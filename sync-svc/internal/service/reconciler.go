package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"restaurant-sync/sync-svc/internal/domain"
	"restaurant-sync/sync-svc/internal/snapshot"
)

var (
	ErrInvalidFilter  = errors.New("registry filter must be OPEN, CLOSED or ALL")
	ErrMissingTableID = errors.New("table id is required")
	ErrMissingOrderID = errors.New("order id is required")
)

// maxRegistryPages bounds one paged walk (registry, kitchen queue or table
// orders) so a misbehaving cursor cannot loop forever.
const maxRegistryPages = 100

// Reconciler is the only writer of the entity store. Snapshot pages and
// classified stream events both end up here as store calls.
type Reconciler struct {
	store  EntityStore
	loader SnapshotLoader

	kitchenStatuses []domain.OrderStatus

	mu             sync.Mutex
	selectedTable  string
	registryFilter domain.RegistryFilter

	dropped atomic.Int64
}

type Option func(*Reconciler)

// WithKitchenStatuses sets which kitchen queues a resync reloads. Tablet
// views pass none.
func WithKitchenStatuses(statuses ...domain.OrderStatus) Option {
	return func(r *Reconciler) {
		r.kitchenStatuses = statuses
	}
}

func NewReconciler(store EntityStore, loader SnapshotLoader, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:           store,
		loader:          loader,
		kitchenStatuses: domain.KitchenStatuses,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) SelectedTable() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectedTable
}

// RegistryFilter returns "" while no registry listing is being shown.
func (r *Reconciler) RegistryFilter() domain.RegistryFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registryFilter
}

// Dropped counts frames that classified as Unrecognized.
func (r *Reconciler) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Reconciler) ApplyFrame(ctx context.Context, raw string) domain.Event {
	event := domain.Classify(raw)
	r.Apply(ctx, event)
	return event
}

func (r *Reconciler) Apply(ctx context.Context, event domain.Event) {
	switch ev := event.(type) {
	case domain.OrderUpsert:
		r.applyOrder(ev.Order)

	case domain.TableOpenedEvent:
		_, known := r.store.Table(ev.Table.TableID)
		r.store.UpsertTable(ev.Table)
		r.refreshRegistryAfter(ctx, domain.EventTableOpened, known)

	case domain.TableClosedEvent:
		previous, known := r.store.Table(ev.TableID)
		status := domain.TableClosed
		closedAt := ev.ClosedAt
		if closedAt == "" {
			closedAt = previous.ClosedAt
		}
		r.store.PatchTable(ev.TableID, domain.TablePatch{Status: &status, ClosedAt: &closedAt})

		// The registry replace drops rows outside the filter, so the selected
		// summary is fetched after it.
		r.refreshRegistryAfter(ctx, domain.EventTableClosed, known)
		if ev.TableID == r.SelectedTable() {
			if err := r.RefreshTableSummary(ctx, ev.TableID); err != nil {
				log.Printf("reconciler: summary refresh for closed table %s failed: %v", ev.TableID, err)
			}
		}

	default:
		r.dropped.Add(1)
	}
}

// applyOrder upserts an order seen on the stream or returned by a mutation
// and moves its table's lastOrderAt forward. An empty createdAt keeps the
// previous value.
func (r *Reconciler) applyOrder(order domain.Order) {
	if !r.store.UpsertOrder(order) {
		return
	}
	if order.CreatedAt == "" {
		return
	}
	createdAt := order.CreatedAt
	r.store.PatchTable(order.TableID, domain.TablePatch{LastOrderAt: &createdAt})
}

// refreshRegistryAfter re-issues the registry query when a table event may
// have changed the membership of the active filter.
func (r *Reconciler) refreshRegistryAfter(ctx context.Context, eventType string, known bool) {
	if !registryRelevant(r.RegistryFilter(), eventType, known) {
		return
	}
	if err := r.RefreshRegistry(ctx); err != nil {
		log.Printf("reconciler: registry refresh after %s failed: %v", eventType, err)
	}
}

// registryRelevant reports whether a table event changed the store in a way
// the active filter's listing must reflect. A table.opened always upserts a
// row. A table.closed only touches known rows, but may add a member to a
// listing that includes closed tables.
func registryRelevant(filter domain.RegistryFilter, eventType string, known bool) bool {
	if filter == "" {
		return false
	}
	switch eventType {
	case domain.EventTableOpened:
		return true
	case domain.EventTableClosed:
		return known || filter != domain.RegistryOpen
	}
	return false
}

// LoadKitchenQueue merges one kitchen-queue page and returns the cursor of
// the next one ("" on the final page).
func (r *Reconciler) LoadKitchenQueue(ctx context.Context, status domain.OrderStatus, cursor string) (string, error) {
	page, err := r.loader.KitchenQueue(ctx, status, cursor)
	if err != nil {
		return "", err
	}
	r.mergeOrders(page.Orders)
	return page.NextCursor, nil
}

func (r *Reconciler) LoadTableOrders(ctx context.Context, tableID, cursor string) (string, error) {
	if tableID == "" {
		return "", ErrMissingTableID
	}
	page, err := r.loader.TableOrders(ctx, tableID, cursor)
	if err != nil {
		return "", err
	}
	r.mergeOrders(page.Orders)
	return page.NextCursor, nil
}

// loadAllPages follows nextCursor from the first page until the final one,
// bounded like the registry walk. Pages merged before a failure stay merged.
func loadAllPages(load func(cursor string) (string, error)) error {
	cursor := ""
	for i := 0; i < maxRegistryPages; i++ {
		next, err := load(cursor)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
	return nil
}

func (r *Reconciler) loadWholeKitchenQueue(ctx context.Context, status domain.OrderStatus) error {
	return loadAllPages(func(cursor string) (string, error) {
		return r.LoadKitchenQueue(ctx, status, cursor)
	})
}

func (r *Reconciler) loadAllTableOrders(ctx context.Context, tableID string) error {
	return loadAllPages(func(cursor string) (string, error) {
		return r.LoadTableOrders(ctx, tableID, cursor)
	})
}

func (r *Reconciler) mergeOrders(orders []domain.Order) {
	for _, order := range orders {
		r.store.UpsertOrder(order)
	}
}

func (r *Reconciler) RefreshTableSummary(ctx context.Context, tableID string) error {
	if tableID == "" {
		return ErrMissingTableID
	}
	table, err := r.loader.TableSummary(ctx, tableID)
	if err != nil {
		return err
	}
	r.store.UpsertTable(table)
	return nil
}

// RefreshRegistry walks every page of the registry for the active filter
// (ALL when none is set) and replaces the table map with the result. A failed
// page leaves the store untouched.
func (r *Reconciler) RefreshRegistry(ctx context.Context) error {
	filter := r.RegistryFilter()
	if filter == "" {
		filter = domain.RegistryAll
	}

	var tables []domain.Table
	cursor := ""
	for i := 0; i < maxRegistryPages; i++ {
		page, err := r.loader.TableRegistry(ctx, filter, cursor)
		if err != nil {
			return err
		}
		tables = append(tables, page.Tables...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if active := r.RegistryFilter(); active != "" && active != filter {
		return nil
	}
	r.store.ReplaceTables(tables)
	return nil
}

func (r *Reconciler) SetRegistryFilter(ctx context.Context, filter domain.RegistryFilter) error {
	if !filter.Valid() {
		return ErrInvalidFilter
	}
	r.mu.Lock()
	r.registryFilter = filter
	r.mu.Unlock()
	return r.RefreshRegistry(ctx)
}

// SelectTable makes tableID the table the view follows and loads its orders
// and summary.
func (r *Reconciler) SelectTable(ctx context.Context, tableID string) error {
	if tableID == "" {
		return ErrMissingTableID
	}
	r.mu.Lock()
	r.selectedTable = tableID
	r.mu.Unlock()

	ordersErr := r.loadAllTableOrders(ctx, tableID)
	return errors.Join(ordersErr, r.RefreshTableSummary(ctx, tableID))
}

// PlaceOrder places an order and stores it right away instead of waiting for
// the stream to echo it.
func (r *Reconciler) PlaceOrder(ctx context.Context, tableID string, lines []snapshot.LineRequest) (domain.Order, error) {
	if tableID == "" {
		return domain.Order{}, ErrMissingTableID
	}
	order, err := r.loader.PlaceOrder(ctx, tableID, lines)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status == "" {
		fetched, err := r.loader.Order(ctx, order.OrderID)
		if err != nil {
			log.Printf("reconciler: fetching placed order %s failed: %v", order.OrderID, err)
			return order, nil
		}
		order = fetched
	}
	r.applyOrder(order)
	return order, nil
}

func (r *Reconciler) CloseTable(ctx context.Context, tableID string) error {
	if tableID == "" {
		return ErrMissingTableID
	}
	if err := r.loader.CloseTable(ctx, tableID); err != nil {
		return err
	}
	r.afterTableAction(ctx, tableID)
	return nil
}

func (r *Reconciler) OpenTable(ctx context.Context, tableID string) error {
	if tableID == "" {
		return ErrMissingTableID
	}
	if err := r.loader.OpenTable(ctx, tableID); err != nil {
		return err
	}
	r.afterTableAction(ctx, tableID)
	return nil
}

// afterTableAction refreshes what a successful open/close may have changed.
// The action itself already succeeded, so refresh failures are only logged.
func (r *Reconciler) afterTableAction(ctx context.Context, tableID string) {
	if r.RegistryFilter() != "" {
		if err := r.RefreshRegistry(ctx); err != nil {
			log.Printf("reconciler: registry refresh after action on %s failed: %v", tableID, err)
		}
	}
	if tableID == r.SelectedTable() {
		if err := r.RefreshTableSummary(ctx, tableID); err != nil {
			log.Printf("reconciler: summary refresh for %s failed: %v", tableID, err)
		}
	}
}

func (r *Reconciler) AcceptOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return r.orderAction(ctx, orderID, r.loader.AcceptOrder)
}

func (r *Reconciler) MarkOrderReady(ctx context.Context, orderID string) (domain.Order, error) {
	return r.orderAction(ctx, orderID, r.loader.MarkOrderReady)
}

func (r *Reconciler) orderAction(ctx context.Context, orderID string, call func(context.Context, string) (domain.Order, error)) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, ErrMissingOrderID
	}
	order, err := call(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	r.store.UpsertOrder(order)
	return order, nil
}

// Resync refetches every snapshot the view depends on. It runs whenever the
// stream (re)connects because frames missed while disconnected are never
// redelivered.
func (r *Reconciler) Resync(ctx context.Context) error {
	var errs []error
	for _, status := range r.kitchenStatuses {
		if err := r.loadWholeKitchenQueue(ctx, status); err != nil {
			errs = append(errs, fmt.Errorf("kitchen queue %s: %w", status, err))
		}
	}
	if r.RegistryFilter() != "" {
		if err := r.RefreshRegistry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("table registry: %w", err))
		}
	}
	if tableID := r.SelectedTable(); tableID != "" {
		if err := r.loadAllTableOrders(ctx, tableID); err != nil {
			errs = append(errs, fmt.Errorf("table %s orders: %w", tableID, err))
		}
		if err := r.RefreshTableSummary(ctx, tableID); err != nil {
			errs = append(errs, fmt.Errorf("table %s summary: %w", tableID, err))
		}
	}
	return errors.Join(errs...)
}
