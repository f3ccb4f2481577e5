package mocks

import (
	"context"

	"restaurant-sync/sync-svc/internal/domain"
	"restaurant-sync/sync-svc/internal/snapshot"

	"github.com/stretchr/testify/mock"
)

// SnapshotLoader is a mock type for the service.SnapshotLoader type
type SnapshotLoader struct {
	mock.Mock
}

func (_m *SnapshotLoader) KitchenQueue(ctx context.Context, status domain.OrderStatus, cursor string) (snapshot.OrderPage, error) {
	ret := _m.Called(ctx, status, cursor)
	return ret.Get(0).(snapshot.OrderPage), ret.Error(1)
}

func (_m *SnapshotLoader) TableOrders(ctx context.Context, tableID string, cursor string) (snapshot.OrderPage, error) {
	ret := _m.Called(ctx, tableID, cursor)
	return ret.Get(0).(snapshot.OrderPage), ret.Error(1)
}

func (_m *SnapshotLoader) TableRegistry(ctx context.Context, filter domain.RegistryFilter, cursor string) (snapshot.TablePage, error) {
	ret := _m.Called(ctx, filter, cursor)
	return ret.Get(0).(snapshot.TablePage), ret.Error(1)
}

func (_m *SnapshotLoader) TableSummary(ctx context.Context, tableID string) (domain.Table, error) {
	ret := _m.Called(ctx, tableID)
	return ret.Get(0).(domain.Table), ret.Error(1)
}

func (_m *SnapshotLoader) Order(ctx context.Context, orderID string) (domain.Order, error) {
	ret := _m.Called(ctx, orderID)
	return ret.Get(0).(domain.Order), ret.Error(1)
}

func (_m *SnapshotLoader) PlaceOrder(ctx context.Context, tableID string, lines []snapshot.LineRequest) (domain.Order, error) {
	ret := _m.Called(ctx, tableID, lines)
	return ret.Get(0).(domain.Order), ret.Error(1)
}

func (_m *SnapshotLoader) CloseTable(ctx context.Context, tableID string) error {
	ret := _m.Called(ctx, tableID)
	return ret.Error(0)
}

func (_m *SnapshotLoader) OpenTable(ctx context.Context, tableID string) error {
	ret := _m.Called(ctx, tableID)
	return ret.Error(0)
}

func (_m *SnapshotLoader) AcceptOrder(ctx context.Context, orderID string) (domain.Order, error) {
	ret := _m.Called(ctx, orderID)
	return ret.Get(0).(domain.Order), ret.Error(1)
}

func (_m *SnapshotLoader) MarkOrderReady(ctx context.Context, orderID string) (domain.Order, error) {
	ret := _m.Called(ctx, orderID)
	return ret.Get(0).(domain.Order), ret.Error(1)
}

// NewSnapshotLoader creates a new instance of SnapshotLoader. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewSnapshotLoader(t interface {
	mock.TestingT
	Cleanup(func())
}) *SnapshotLoader {
	m := &SnapshotLoader{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
