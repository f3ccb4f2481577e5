package service_test

import (
	"context"
	"errors"
	"testing"

	"restaurant-sync/sync-svc/internal/domain"
	"restaurant-sync/sync-svc/internal/mocks"
	"restaurant-sync/sync-svc/internal/service"
	"restaurant-sync/sync-svc/internal/snapshot"
	"restaurant-sync/sync-svc/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReconciler(t *testing.T) (*service.Reconciler, *storage.Store, *mocks.SnapshotLoader) {
	t.Helper()
	store := storage.NewStore()
	loader := mocks.NewSnapshotLoader(t)
	return service.NewReconciler(store, loader), store, loader
}

func TestReconciler_MalformedFramesLeaveStoreUnchanged(t *testing.T) {
	r, store, _ := newReconciler(t)
	ctx := context.Background()
	store.UpsertOrder(domain.Order{OrderID: "ord_1", Status: domain.OrderPlaced, Lines: []domain.OrderLine{}})
	store.UpsertTable(domain.Table{TableID: "tbl_1", Status: domain.TableOpen})
	ordersBefore, tablesBefore := store.Orders(), store.Tables()

	assert.NotPanics(t, func() {
		r.ApplyFrame(ctx, "not json at all")
		r.ApplyFrame(ctx, `{"event_type":"x"}`)
		r.ApplyFrame(ctx, `{"event_type":"table.closed","payload":[]}`)
	})

	assert.Equal(t, ordersBefore, store.Orders())
	assert.Equal(t, tablesBefore, store.Tables())
	assert.Equal(t, int64(3), r.Dropped())
}

func TestReconciler_OrderUpsertIdempotent(t *testing.T) {
	r, store, _ := newReconciler(t)
	frame := `{"event_type":"order.placed","payload":{"orderId":"ord_1","tableId":"tbl_1","status":"PLACED","createdAt":"2024-01-01T00:00:00Z"}}`

	r.ApplyFrame(context.Background(), frame)
	first := store.Orders()
	for i := 0; i < 3; i++ {
		r.ApplyFrame(context.Background(), frame)
	}

	assert.Equal(t, first, store.Orders())
}

func TestReconciler_OrderUpsertLastWriteWins(t *testing.T) {
	r, store, _ := newReconciler(t)
	ctx := context.Background()

	r.ApplyFrame(ctx, `{"event_type":"order.accepted","payload":{"orderId":"ord_1","status":"ACCEPTED","createdAt":"2024-05-01T00:00:00Z"}}`)
	r.ApplyFrame(ctx, `{"event_type":"order.placed","payload":{"orderId":"ord_1","status":"PLACED","createdAt":"2024-01-01T00:00:00Z"}}`)

	order, ok := store.Order("ord_1")
	require.True(t, ok)
	assert.Equal(t, domain.Order{
		OrderID:   "ord_1",
		Status:    domain.OrderPlaced,
		CreatedAt: "2024-01-01T00:00:00Z",
		Lines:     []domain.OrderLine{},
	}, order)
}

func TestReconciler_TableOpenCloseLifecycle(t *testing.T) {
	r, store, _ := newReconciler(t)
	ctx := context.Background()

	r.ApplyFrame(ctx, `{"event_type":"table.opened","restaurant_id":"rst_001","payload":{"tableId":"tbl_42","openedAt":"2024-02-01T10:00:00Z"}}`)

	opened, ok := store.Table("tbl_42")
	require.True(t, ok)
	assert.Equal(t, domain.TableOpen, opened.Status)
	assert.Equal(t, "2024-02-01T10:00:00Z", opened.OpenedAt)
	assert.Equal(t, domain.TableCounts{}, opened.Counts)
	assert.Equal(t, int64(0), opened.Totals.AmountCents)

	r.ApplyFrame(ctx, `{"event_type":"table.closed","payload":{"tableId":"tbl_42","closedAt":"2024-02-01T12:00:00Z"}}`)

	closed, ok := store.Table("tbl_42")
	require.True(t, ok)
	expected := opened
	expected.Status = domain.TableClosed
	expected.ClosedAt = "2024-02-01T12:00:00Z"
	assert.Equal(t, expected, closed)
}

func TestReconciler_TableClosedKeepsPreviousClosedAt(t *testing.T) {
	r, store, _ := newReconciler(t)
	store.UpsertTable(domain.Table{TableID: "tbl_1", Status: domain.TableOpen, ClosedAt: "2024-01-01T00:00:00Z"})

	r.ApplyFrame(context.Background(), `{"event_type":"table.closed","payload":{"tableId":"tbl_1"}}`)

	table, _ := store.Table("tbl_1")
	assert.Equal(t, domain.TableClosed, table.Status)
	assert.Equal(t, "2024-01-01T00:00:00Z", table.ClosedAt)
}

func TestReconciler_TableClosedForUnknownTableIsNoop(t *testing.T) {
	r, store, _ := newReconciler(t)

	r.ApplyFrame(context.Background(), `{"event_type":"table.closed","payload":{"tableId":"tbl_404"}}`)

	assert.Empty(t, store.Tables())
}

func TestReconciler_LastOrderAtOverlay(t *testing.T) {
	r, store, _ := newReconciler(t)
	ctx := context.Background()
	store.UpsertTable(domain.Table{TableID: "tbl_7", Status: domain.TableOpen})

	r.ApplyFrame(ctx, `{"event_type":"order.placed","payload":{"orderId":"ord_1","tableId":"tbl_7","createdAt":"2024-01-01T00:00:00Z"}}`)
	table, _ := store.Table("tbl_7")
	assert.Equal(t, "2024-01-01T00:00:00Z", table.LastOrderAt)

	r.ApplyFrame(ctx, `{"event_type":"order.placed","payload":{"orderId":"ord_2","tableId":"tbl_7","createdAt":""}}`)
	table, _ = store.Table("tbl_7")
	assert.Equal(t, "2024-01-01T00:00:00Z", table.LastOrderAt)

	_, ok := store.Order("ord_2")
	assert.True(t, ok)
}

func TestReconciler_OrderForUnknownTableDoesNotCreateTable(t *testing.T) {
	r, store, _ := newReconciler(t)

	r.ApplyFrame(context.Background(), `{"event_type":"order.placed","payload":{"orderId":"ord_1","tableId":"tbl_9","createdAt":"2024-01-01T00:00:00Z"}}`)

	assert.Empty(t, store.Tables())
	assert.Len(t, store.Orders(), 1)
}

func TestReconciler_RegistryReplacesTables(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()
	store.UpsertTable(domain.Table{TableID: "tbl_closed", Status: domain.TableClosed})
	store.UpsertTable(domain.Table{TableID: "tbl_open", Status: domain.TableOpen})

	loader.On("TableRegistry", mock.Anything, domain.RegistryOpen, "").
		Return(snapshot.TablePage{Tables: []domain.Table{{TableID: "tbl_open", Status: domain.TableOpen}}}, nil).Once()

	require.NoError(t, r.SetRegistryFilter(ctx, domain.RegistryOpen))

	tables := store.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, "tbl_open", tables[0].TableID)
}

func TestReconciler_RegistryWalksPagesAndKeepsStoreOnFailure(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()
	store.UpsertTable(domain.Table{TableID: "tbl_old", Status: domain.TableOpen})

	loader.On("TableRegistry", mock.Anything, domain.RegistryAll, "").
		Return(snapshot.TablePage{Tables: []domain.Table{{TableID: "tbl_1"}}, NextCursor: "c2"}, nil).Once()
	loader.On("TableRegistry", mock.Anything, domain.RegistryAll, "c2").
		Return(snapshot.TablePage{}, &snapshot.SnapshotFetchError{StatusCode: 503, Message: "request failed (503)"}).Once()

	err := r.SetRegistryFilter(ctx, domain.RegistryAll)
	require.Error(t, err)
	assert.Equal(t, []domain.Table{{TableID: "tbl_old", Status: domain.TableOpen}}, store.Tables())

	loader.On("TableRegistry", mock.Anything, domain.RegistryAll, "").
		Return(snapshot.TablePage{Tables: []domain.Table{{TableID: "tbl_1"}}, NextCursor: "c2"}, nil).Once()
	loader.On("TableRegistry", mock.Anything, domain.RegistryAll, "c2").
		Return(snapshot.TablePage{Tables: []domain.Table{{TableID: "tbl_2"}}}, nil).Once()

	require.NoError(t, r.RefreshRegistry(ctx))
	assert.Len(t, store.Tables(), 2)
	_, ok := store.Table("tbl_old")
	assert.False(t, ok)
}

func TestReconciler_InvalidRegistryFilter(t *testing.T) {
	r, _, _ := newReconciler(t)
	assert.ErrorIs(t, r.SetRegistryFilter(context.Background(), "SOME"), service.ErrInvalidFilter)
}

func TestReconciler_KitchenQueueIsAdditive(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()
	store.UpsertOrder(domain.Order{OrderID: "ord_placed", Status: domain.OrderPlaced})

	loader.On("KitchenQueue", mock.Anything, domain.OrderReady, "").
		Return(snapshot.OrderPage{Orders: []domain.Order{{OrderID: "ord_ready", Status: domain.OrderReady}}, NextCursor: "next"}, nil).Once()

	cursor, err := r.LoadKitchenQueue(ctx, domain.OrderReady, "")
	require.NoError(t, err)
	assert.Equal(t, "next", cursor)

	_, ok := store.Order("ord_placed")
	assert.True(t, ok)
	_, ok = store.Order("ord_ready")
	assert.True(t, ok)
}

func TestReconciler_KitchenQueueFailureKeepsMergedPages(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()

	loader.On("KitchenQueue", mock.Anything, domain.OrderPlaced, "").
		Return(snapshot.OrderPage{Orders: []domain.Order{{OrderID: "ord_1", Status: domain.OrderPlaced}}, NextCursor: "p2"}, nil).Once()
	loader.On("KitchenQueue", mock.Anything, domain.OrderPlaced, "p2").
		Return(snapshot.OrderPage{}, errors.New("network down")).Once()

	cursor, err := r.LoadKitchenQueue(ctx, domain.OrderPlaced, "")
	require.NoError(t, err)
	_, err = r.LoadKitchenQueue(ctx, domain.OrderPlaced, cursor)
	require.Error(t, err)

	assert.Len(t, store.Orders(), 1)
}

func TestReconciler_TableEventsRefreshRegistry(t *testing.T) {
	tests := []struct {
		name        string
		filter      domain.RegistryFilter
		known       bool
		frame       string
		wantRefresh bool
	}{
		{name: "opened under OPEN", filter: domain.RegistryOpen, frame: `{"event_type":"table.opened","payload":{"tableId":"tbl_5"}}`, wantRefresh: true},
		{name: "closed unknown under OPEN", filter: domain.RegistryOpen, frame: `{"event_type":"table.closed","payload":{"tableId":"tbl_5"}}`, wantRefresh: false},
		{name: "closed known under OPEN", filter: domain.RegistryOpen, known: true, frame: `{"event_type":"table.closed","payload":{"tableId":"tbl_5"}}`, wantRefresh: true},
		{name: "opened unknown under CLOSED", filter: domain.RegistryClosed, frame: `{"event_type":"table.opened","payload":{"tableId":"tbl_5"}}`, wantRefresh: true},
		{name: "opened known under CLOSED", filter: domain.RegistryClosed, known: true, frame: `{"event_type":"table.opened","payload":{"tableId":"tbl_5"}}`, wantRefresh: true},
		{name: "closed under CLOSED", filter: domain.RegistryClosed, frame: `{"event_type":"table.closed","payload":{"tableId":"tbl_5"}}`, wantRefresh: true},
		{name: "closed under ALL", filter: domain.RegistryAll, frame: `{"event_type":"table.closed","payload":{"tableId":"tbl_5"}}`, wantRefresh: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			r, store, loader := newReconciler(t)
			ctx := context.Background()

			loader.On("TableRegistry", mock.Anything, testCase.filter, "").
				Return(snapshot.TablePage{}, nil).Once()
			require.NoError(t, r.SetRegistryFilter(ctx, testCase.filter))
			if testCase.known {
				store.UpsertTable(domain.Table{TableID: "tbl_5", Status: domain.TableOpen})
			}

			if testCase.wantRefresh {
				loader.On("TableRegistry", mock.Anything, testCase.filter, "").
					Return(snapshot.TablePage{}, nil).Once()
			}
			r.ApplyFrame(ctx, testCase.frame)

			expectedCalls := 1
			if testCase.wantRefresh {
				expectedCalls = 2
			}
			loader.AssertNumberOfCalls(t, "TableRegistry", expectedCalls)
		})
	}
}

func TestReconciler_TableClosedRefreshesSelectedSummary(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()

	loader.On("TableOrders", mock.Anything, "tbl_1", "").
		Return(snapshot.OrderPage{Orders: []domain.Order{{OrderID: "ord_1", TableID: "tbl_1"}}}, nil).Once()
	loader.On("TableSummary", mock.Anything, "tbl_1").
		Return(domain.Table{TableID: "tbl_1", Status: domain.TableOpen, Counts: domain.TableCounts{OrdersTotal: 1}}, nil).Once()
	require.NoError(t, r.SelectTable(ctx, "tbl_1"))

	loader.On("TableSummary", mock.Anything, "tbl_1").
		Return(domain.Table{TableID: "tbl_1", Status: domain.TableClosed, ClosedAt: "2024-01-01T20:00:00Z", Counts: domain.TableCounts{OrdersTotal: 1}}, nil).Once()
	r.ApplyFrame(ctx, `{"event_type":"table.closed","payload":{"tableId":"tbl_1","closedAt":"2024-01-01T20:00:00Z"}}`)

	table, ok := store.Table("tbl_1")
	require.True(t, ok)
	assert.Equal(t, domain.TableClosed, table.Status)
	assert.Equal(t, 1, table.Counts.OrdersTotal)
	loader.AssertNumberOfCalls(t, "TableSummary", 2)
}

func TestReconciler_TableClosedKeepsSelectedSummaryUnderOpenFilter(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()

	loader.On("TableRegistry", mock.Anything, domain.RegistryOpen, "").
		Return(snapshot.TablePage{Tables: []domain.Table{{TableID: "tbl_1", Status: domain.TableOpen}}}, nil).Once()
	require.NoError(t, r.SetRegistryFilter(ctx, domain.RegistryOpen))

	loader.On("TableOrders", mock.Anything, "tbl_1", "").Return(snapshot.OrderPage{}, nil).Once()
	loader.On("TableSummary", mock.Anything, "tbl_1").
		Return(domain.Table{TableID: "tbl_1", Status: domain.TableOpen}, nil).Once()
	require.NoError(t, r.SelectTable(ctx, "tbl_1"))

	// tbl_1 leaves the OPEN listing; its summary must survive the replace.
	loader.On("TableRegistry", mock.Anything, domain.RegistryOpen, "").
		Return(snapshot.TablePage{}, nil).Once()
	loader.On("TableSummary", mock.Anything, "tbl_1").
		Return(domain.Table{TableID: "tbl_1", Status: domain.TableClosed, ClosedAt: "2024-01-01T20:00:00Z"}, nil).Once()
	r.ApplyFrame(ctx, `{"event_type":"table.closed","payload":{"tableId":"tbl_1","closedAt":"2024-01-01T20:00:00Z"}}`)

	table, ok := store.Table("tbl_1")
	require.True(t, ok)
	assert.Equal(t, domain.TableClosed, table.Status)
	assert.Equal(t, "2024-01-01T20:00:00Z", table.ClosedAt)
}

func TestReconciler_TableOpenedUnderClosedFilterRefreshesListing(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()

	loader.On("TableRegistry", mock.Anything, domain.RegistryClosed, "").
		Return(snapshot.TablePage{Tables: []domain.Table{{TableID: "tbl_c", Status: domain.TableClosed}}}, nil).Twice()
	require.NoError(t, r.SetRegistryFilter(ctx, domain.RegistryClosed))

	r.ApplyFrame(ctx, `{"event_type":"table.opened","payload":{"tableId":"tbl_new"}}`)

	tables := store.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, "tbl_c", tables[0].TableID)
}

func TestReconciler_CloseTable(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()

	loader.On("TableRegistry", mock.Anything, domain.RegistryOpen, "").
		Return(snapshot.TablePage{Tables: []domain.Table{{TableID: "tbl_1", Status: domain.TableOpen}}}, nil).Once()
	require.NoError(t, r.SetRegistryFilter(ctx, domain.RegistryOpen))

	loader.On("CloseTable", mock.Anything, "tbl_1").Return(nil).Once()
	loader.On("TableRegistry", mock.Anything, domain.RegistryOpen, "").
		Return(snapshot.TablePage{}, nil).Once()

	require.NoError(t, r.CloseTable(ctx, "tbl_1"))
	assert.Empty(t, store.Tables())
}

func TestReconciler_CloseTableFailure(t *testing.T) {
	r, store, loader := newReconciler(t)
	store.UpsertTable(domain.Table{TableID: "tbl_1", Status: domain.TableOpen})
	fetchErr := &snapshot.SnapshotFetchError{StatusCode: 409, Message: "table already closed"}

	loader.On("CloseTable", mock.Anything, "tbl_1").Return(fetchErr).Once()

	err := r.CloseTable(context.Background(), "tbl_1")
	assert.ErrorIs(t, err, fetchErr)
	table, _ := store.Table("tbl_1")
	assert.Equal(t, domain.TableOpen, table.Status)
	assert.ErrorIs(t, r.CloseTable(context.Background(), ""), service.ErrMissingTableID)
}

func TestReconciler_PlaceOrderFetchesCreatedOrder(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()
	store.UpsertTable(domain.Table{TableID: "tbl_1", Status: domain.TableOpen})
	lines := []snapshot.LineRequest{{ItemID: "itm_1", Quantity: 1}}
	created := domain.Order{OrderID: "ord_9", TableID: "tbl_1", Status: domain.OrderPlaced, CreatedAt: "2024-03-01T10:00:00Z", Lines: []domain.OrderLine{}}

	loader.On("PlaceOrder", mock.Anything, "tbl_1", lines).Return(domain.Order{OrderID: "ord_9", Lines: []domain.OrderLine{}}, nil).Once()
	loader.On("Order", mock.Anything, "ord_9").Return(created, nil).Once()

	order, err := r.PlaceOrder(ctx, "tbl_1", lines)
	require.NoError(t, err)
	assert.Equal(t, created, order)

	stored, ok := store.Order("ord_9")
	require.True(t, ok)
	assert.Equal(t, created, stored)
	table, _ := store.Table("tbl_1")
	assert.Equal(t, "2024-03-01T10:00:00Z", table.LastOrderAt)
}

func TestReconciler_AcceptAndReady(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()

	loader.On("AcceptOrder", mock.Anything, "ord_1").Return(domain.Order{OrderID: "ord_1", Status: domain.OrderAccepted}, nil).Once()
	loader.On("MarkOrderReady", mock.Anything, "ord_1").Return(domain.Order{OrderID: "ord_1", Status: domain.OrderReady}, nil).Once()

	_, err := r.AcceptOrder(ctx, "ord_1")
	require.NoError(t, err)
	order, _ := store.Order("ord_1")
	assert.Equal(t, domain.OrderAccepted, order.Status)

	_, err = r.MarkOrderReady(ctx, "ord_1")
	require.NoError(t, err)
	order, _ = store.Order("ord_1")
	assert.Equal(t, domain.OrderReady, order.Status)
}

func TestReconciler_Resync(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()

	loader.On("TableOrders", mock.Anything, "tbl_1", "").Return(snapshot.OrderPage{}, nil).Once()
	loader.On("TableSummary", mock.Anything, "tbl_1").Return(domain.Table{TableID: "tbl_1", Status: domain.TableOpen}, nil).Once()
	require.NoError(t, r.SelectTable(ctx, "tbl_1"))

	loader.On("KitchenQueue", mock.Anything, domain.OrderPlaced, "").
		Return(snapshot.OrderPage{Orders: []domain.Order{{OrderID: "ord_1", Status: domain.OrderPlaced}}}, nil).Once()
	loader.On("KitchenQueue", mock.Anything, domain.OrderAccepted, "").
		Return(snapshot.OrderPage{}, errors.New("timeout")).Once()
	loader.On("KitchenQueue", mock.Anything, domain.OrderReady, "").
		Return(snapshot.OrderPage{}, nil).Once()
	loader.On("TableOrders", mock.Anything, "tbl_1", "").Return(snapshot.OrderPage{}, nil).Once()
	loader.On("TableSummary", mock.Anything, "tbl_1").Return(domain.Table{TableID: "tbl_1", Status: domain.TableOpen}, nil).Once()

	err := r.Resync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kitchen queue ACCEPTED")

	_, ok := store.Order("ord_1")
	assert.True(t, ok)
}

func TestReconciler_ResyncWalksEveryPage(t *testing.T) {
	r, store, loader := newReconciler(t)
	ctx := context.Background()

	loader.On("TableOrders", mock.Anything, "tbl_1", "").Return(snapshot.OrderPage{}, nil).Once()
	loader.On("TableSummary", mock.Anything, "tbl_1").Return(domain.Table{TableID: "tbl_1", Status: domain.TableOpen}, nil).Once()
	require.NoError(t, r.SelectTable(ctx, "tbl_1"))
	store.UpsertOrder(domain.Order{OrderID: "ord_p2", TableID: "tbl_2", Status: domain.OrderPlaced})

	loader.On("KitchenQueue", mock.Anything, domain.OrderPlaced, "").
		Return(snapshot.OrderPage{Orders: []domain.Order{{OrderID: "ord_p1", Status: domain.OrderPlaced}}, NextCursor: "p2"}, nil).Once()
	loader.On("KitchenQueue", mock.Anything, domain.OrderPlaced, "p2").
		Return(snapshot.OrderPage{Orders: []domain.Order{{OrderID: "ord_p2", TableID: "tbl_2", Status: domain.OrderAccepted}}}, nil).Once()
	loader.On("KitchenQueue", mock.Anything, domain.OrderAccepted, "").Return(snapshot.OrderPage{}, nil).Once()
	loader.On("KitchenQueue", mock.Anything, domain.OrderReady, "").Return(snapshot.OrderPage{}, nil).Once()
	loader.On("TableOrders", mock.Anything, "tbl_1", "").
		Return(snapshot.OrderPage{Orders: []domain.Order{{OrderID: "ord_t1", TableID: "tbl_1"}}, NextCursor: "t2"}, nil).Once()
	loader.On("TableOrders", mock.Anything, "tbl_1", "t2").
		Return(snapshot.OrderPage{Orders: []domain.Order{{OrderID: "ord_t2", TableID: "tbl_1"}}}, nil).Once()
	loader.On("TableSummary", mock.Anything, "tbl_1").Return(domain.Table{TableID: "tbl_1", Status: domain.TableOpen}, nil).Once()

	require.NoError(t, r.Resync(ctx))

	order, ok := store.Order("ord_p2")
	require.True(t, ok)
	assert.Equal(t, domain.OrderAccepted, order.Status)
	_, ok = store.Order("ord_t2")
	assert.True(t, ok)
	loader.AssertNumberOfCalls(t, "KitchenQueue", 4)
}

func TestReconciler_ResyncTabletSkipsKitchen(t *testing.T) {
	store := storage.NewStore()
	loader := mocks.NewSnapshotLoader(t)
	r := service.NewReconciler(store, loader, service.WithKitchenStatuses())

	assert.NoError(t, r.Resync(context.Background()))
	assert.Empty(t, store.Orders())
}
