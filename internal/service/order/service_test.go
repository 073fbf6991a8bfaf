package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Bayazov/OrderManagement/internal/domain"
	"github.com/Bayazov/OrderManagement/internal/service/order"
	"github.com/Bayazov/OrderManagement/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

// recordingSink накапливает опубликованные события и умеет падать по команде.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.OrderStatusChanged
	err    error
}

func (s *recordingSink) Publish(_ context.Context, event domain.OrderStatusChanged) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) published() []domain.OrderStatusChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OrderStatusChanged, len(s.events))
	copy(out, s.events)
	return out
}

// spyOrderStore считает вызовы Update поверх реального хранилища.
type spyOrderStore struct {
	domain.OrderStore
	mu         sync.Mutex
	updateCnt  int
	lastUpdate *domain.Order
}

func (s *spyOrderStore) Update(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	s.updateCnt++
	s.mu.Unlock()
	err := s.OrderStore.Update(ctx, order)
	if err == nil {
		s.mu.Lock()
		clone := *order
		s.lastUpdate = &clone
		s.mu.Unlock()
	}
	return err
}

func (s *spyOrderStore) updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCnt
}

type fixture struct {
	service *order.Service
	orders  *spyOrderStore
	users   domain.UserStore
	sink    *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := memory.NewUserStore()
	seed := []domain.User{
		{Username: "alice", PasswordHash: "x", Role: domain.RoleUser},
		{Username: "bob", PasswordHash: "x", Role: domain.RoleUser},
		{Username: "admin", PasswordHash: "x", Role: domain.RoleAdmin},
	}
	for i := range seed {
		require.NoError(t, users.Create(context.Background(), &seed[i]))
	}

	orders := &spyOrderStore{OrderStore: memory.NewOrderStore()}
	sink := &recordingSink{}

	return &fixture{
		service: order.New(orders, users, sink, loggerForTests()),
		orders:  orders,
		users:   users,
		sink:    sink,
	}
}

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func newOrderInput() domain.Order {
	return domain.Order{
		CustomerName: "Alice Smith",
		Status:       domain.OrderStatusPending,
		TotalPrice:   dec("99.98"),
		Products: []domain.Product{
			{Name: "Widget", Price: dec("49.99"), Quantity: 2},
		},
	}
}

func TestCreatePersistsOrderForOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "alice", newOrderInput())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.NotZero(t, created.Products[0].ID)
	require.True(t, created.TotalPrice.Equal(dec("99.98")))

	stored, err := f.service.Get(ctx, "alice", created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, stored.ID)
	require.Equal(t, "Alice Smith", stored.CustomerName)

	require.Empty(t, f.sink.published(), "create must not publish events")
}

func TestCreateRejectsTotalPriceMismatch(t *testing.T) {
	f := newFixture(t)

	input := newOrderInput()
	input.TotalPrice = dec("50.00")

	_, err := f.service.Create(context.Background(), "alice", input)
	require.ErrorIs(t, err, domain.ErrTotalPriceMismatch)

	var mismatch *domain.TotalPriceMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.True(t, mismatch.Expected.Equal(dec("99.98")))
	require.True(t, mismatch.Actual.Equal(dec("50.00")))
}

func TestCreateRejectsInvalidOrder(t *testing.T) {
	f := newFixture(t)

	input := newOrderInput()
	input.Products = nil

	_, err := f.service.Create(context.Background(), "alice", input)
	require.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestCreateUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), "ghost", newOrderInput())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUpdateNotFoundLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Update(context.Background(), "alice", 404, newOrderInput())
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	require.Zero(t, f.orders.updates(), "no writes expected on not found")
}

func TestUpdatePublishesEventOnStatusChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "alice", newOrderInput())
	require.NoError(t, err)

	input := newOrderInput()
	input.Status = domain.OrderStatusConfirmed

	updated, err := f.service.Update(ctx, "alice", created.ID, input)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, updated.Status)

	events := f.sink.published()
	require.Len(t, events, 1)
	require.Equal(t, created.ID, events[0].OrderID)
	require.Equal(t, domain.OrderStatusPending, events[0].OldStatus)
	require.Equal(t, domain.OrderStatusConfirmed, events[0].NewStatus)
	require.False(t, events[0].OccurredAt.IsZero())
}

func TestUpdateSameStatusPublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "alice", newOrderInput())
	require.NoError(t, err)

	input := newOrderInput()
	input.CustomerName = "Alice Renamed"

	_, err = f.service.Update(ctx, "alice", created.ID, input)
	require.NoError(t, err)
	require.Empty(t, f.sink.published())
}

func TestUpdateSinkFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "alice", newOrderInput())
	require.NoError(t, err)

	f.sink.err = errors.New("broker unavailable")

	input := newOrderInput()
	input.Status = domain.OrderStatusCancelled

	updated, err := f.service.Update(ctx, "alice", created.ID, input)
	require.NoError(t, err, "publish failure must not fail the update")
	require.Equal(t, domain.OrderStatusCancelled, updated.Status)

	stored, err := f.service.Get(ctx, "alice", created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, stored.Status)
}

func TestUpdateAccessControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "alice", newOrderInput())
	require.NoError(t, err)

	input := newOrderInput()
	input.Status = domain.OrderStatusConfirmed

	_, err = f.service.Update(ctx, "bob", created.ID, input)
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	updated, err := f.service.Update(ctx, "admin", created.ID, input)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, updated.Status)
}

func TestGetAccessControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "alice", newOrderInput())
	require.NoError(t, err)

	_, err = f.service.Get(ctx, "bob", created.ID)
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	got, err := f.service.Get(ctx, "admin", created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestListVisibilityAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cheap := newOrderInput()
	cheap.TotalPrice = dec("10.00")
	cheap.Products = []domain.Product{{Name: "Bolt", Price: dec("10.00"), Quantity: 1}}
	_, err := f.service.Create(ctx, "alice", cheap)
	require.NoError(t, err)

	confirmed := newOrderInput()
	confirmed.Status = domain.OrderStatusConfirmed
	_, err = f.service.Create(ctx, "alice", confirmed)
	require.NoError(t, err)

	other := newOrderInput()
	_, err = f.service.Create(ctx, "bob", other)
	require.NoError(t, err)

	// Обычный пользователь видит только свои заказы.
	mine, err := f.service.List(ctx, "alice", domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	// Администратор видит всё.
	all, err := f.service.List(ctx, "admin", domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Фильтр по статусу.
	status := domain.OrderStatusConfirmed
	byStatus, err := f.service.List(ctx, "alice", domain.OrderFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	require.Equal(t, domain.OrderStatusConfirmed, byStatus[0].Status)

	// Фильтр по диапазону суммы, границы включительно.
	min := dec("50.00")
	max := dec("150.00")
	byPrice, err := f.service.List(ctx, "admin", domain.OrderFilter{MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, byPrice, 2)
	for _, got := range byPrice {
		require.True(t, got.TotalPrice.GreaterThanOrEqual(min))
		require.True(t, got.TotalPrice.LessThanOrEqual(max))
	}
}

func TestDeleteHidesOrderAndPublishesCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "alice", newOrderInput())
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, "alice", created.ID))

	_, err = f.service.Get(ctx, "alice", created.ID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	list, err := f.service.List(ctx, "admin", domain.OrderFilter{})
	require.NoError(t, err)
	require.Empty(t, list)

	events := f.sink.published()
	require.Len(t, events, 1)
	require.Equal(t, domain.OrderStatusCancelled, events[0].NewStatus)

	// Повторное удаление — not found.
	require.ErrorIs(t, f.service.Delete(ctx, "alice", created.ID), domain.ErrOrderNotFound)
}

func TestDeleteAccessControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "alice", newOrderInput())
	require.NoError(t, err)

	require.ErrorIs(t, f.service.Delete(ctx, "bob", created.ID), domain.ErrAccessDenied)
	require.NoError(t, f.service.Delete(ctx, "admin", created.ID))
}
