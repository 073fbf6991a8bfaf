package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

// orderStoreInMemory — простая in-memory реализация OrderStore.
// Используется в тестах и при локальном запуске без PostgreSQL.
type orderStoreInMemory struct {
	mu            sync.RWMutex
	items         map[int64]domain.Order
	nextOrderID   int64
	nextProductID int64
}

// NewOrderStore возвращает in-memory хранилище заказов.
func NewOrderStore() domain.OrderStore {
	return &orderStoreInMemory{
		items: make(map[int64]domain.Order),
	}
}

// Create сохраняет новый заказ, присваивая идентификаторы заказу и позициям.
func (s *orderStoreInMemory) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.nextOrderID++
	order.ID = s.nextOrderID
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Products {
		s.nextProductID++
		order.Products[i].ID = s.nextProductID
	}

	// Храним копию, чтобы избежать непредсказуемых мутаций извне.
	s.items[order.ID] = cloneOrder(*order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound; мягко удалённые записи не видны.
func (s *orderStoreInMemory) Get(_ context.Context, id int64) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.items[id]
	if !ok || order.Deleted {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// List возвращает все неудалённые заказы, удовлетворяющие фильтру.
func (s *orderStoreInMemory) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	return s.list(func(domain.Order) bool { return true }, filter), nil
}

// ListByOwner возвращает заказы владельца, удовлетворяющие фильтру.
func (s *orderStoreInMemory) ListByOwner(_ context.Context, ownerID int64, filter domain.OrderFilter) ([]domain.Order, error) {
	return s.list(func(o domain.Order) bool { return o.UserID == ownerID }, filter), nil
}

// Update перезаписывает заказ с проверкой версии (optimistic locking).
func (s *orderStoreInMemory) Update(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[order.ID]
	if !ok || current.Deleted {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	order.Version++
	order.UpdatedAt = time.Now().UTC()
	for i := range order.Products {
		if order.Products[i].ID == 0 {
			s.nextProductID++
			order.Products[i].ID = s.nextProductID
		}
	}

	s.items[order.ID] = cloneOrder(*order)
	return nil
}

func (s *orderStoreInMemory) list(match func(domain.Order) bool, filter domain.OrderFilter) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.items))
	for _, order := range s.items {
		if order.Deleted || !match(order) || !matchesFilter(order, filter) {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result
}

// matchesFilter применяет конвенцию "nil означает любое значение";
// границы цены включительны.
func matchesFilter(order domain.Order, filter domain.OrderFilter) bool {
	if filter.Status != nil && order.Status != *filter.Status {
		return false
	}
	if filter.MinPrice != nil && order.TotalPrice.LessThan(*filter.MinPrice) {
		return false
	}
	if filter.MaxPrice != nil && order.TotalPrice.GreaterThan(*filter.MaxPrice) {
		return false
	}
	return true
}

// cloneOrder делает глубокую копию заказа вместе с позициями.
func cloneOrder(order domain.Order) domain.Order {
	products := make([]domain.Product, len(order.Products))
	copy(products, order.Products)
	order.Products = products
	return order
}

var _ domain.OrderStore = (*orderStoreInMemory)(nil)
