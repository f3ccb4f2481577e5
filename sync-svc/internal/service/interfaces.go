package service

import (
	"context"

	"restaurant-sync/sync-svc/internal/domain"
	"restaurant-sync/sync-svc/internal/snapshot"
	"restaurant-sync/sync-svc/internal/storage"
)

type EntityStore interface {
	UpsertOrder(order domain.Order) bool
	UpsertTable(table domain.Table) bool
	PatchTable(tableID string, patch domain.TablePatch) bool
	ReplaceTables(tables []domain.Table)
	Order(orderID string) (domain.Order, bool)
	Table(tableID string) (domain.Table, bool)
	Orders() []domain.Order
	Tables() []domain.Table
}

type SnapshotLoader interface {
	KitchenQueue(ctx context.Context, status domain.OrderStatus, cursor string) (snapshot.OrderPage, error)
	TableOrders(ctx context.Context, tableID, cursor string) (snapshot.OrderPage, error)
	TableRegistry(ctx context.Context, filter domain.RegistryFilter, cursor string) (snapshot.TablePage, error)
	TableSummary(ctx context.Context, tableID string) (domain.Table, error)
	Order(ctx context.Context, orderID string) (domain.Order, error)
	PlaceOrder(ctx context.Context, tableID string, lines []snapshot.LineRequest) (domain.Order, error)
	CloseTable(ctx context.Context, tableID string) error
	OpenTable(ctx context.Context, tableID string) error
	AcceptOrder(ctx context.Context, orderID string) (domain.Order, error)
	MarkOrderReady(ctx context.Context, orderID string) (domain.Order, error)
}

type ReconcilerInterface interface {
	SelectedTable() string
	RegistryFilter() domain.RegistryFilter
	Dropped() int64
	ApplyFrame(ctx context.Context, raw string) domain.Event
	Apply(ctx context.Context, event domain.Event)
	LoadKitchenQueue(ctx context.Context, status domain.OrderStatus, cursor string) (string, error)
	LoadTableOrders(ctx context.Context, tableID, cursor string) (string, error)
	RefreshTableSummary(ctx context.Context, tableID string) error
	RefreshRegistry(ctx context.Context) error
	SetRegistryFilter(ctx context.Context, filter domain.RegistryFilter) error
	SelectTable(ctx context.Context, tableID string) error
	PlaceOrder(ctx context.Context, tableID string, lines []snapshot.LineRequest) (domain.Order, error)
	CloseTable(ctx context.Context, tableID string) error
	OpenTable(ctx context.Context, tableID string) error
	AcceptOrder(ctx context.Context, orderID string) (domain.Order, error)
	MarkOrderReady(ctx context.Context, orderID string) (domain.Order, error)
	Resync(ctx context.Context) error
}

type ProjectorInterface interface {
	KitchenQueue(status domain.OrderStatus) []domain.Order
	TableOrders(tableID string) []domain.Order
	Registry() []domain.Table
	Table(tableID string) (domain.Table, bool)
}

var (
	_ EntityStore         = (*storage.Store)(nil)
	_ SnapshotLoader      = (*snapshot.Loader)(nil)
	_ ReconcilerInterface = (*Reconciler)(nil)
	_ ProjectorInterface  = (*Projector)(nil)
	_ QRGenerator         = DefaultQRGenerator{}
)
