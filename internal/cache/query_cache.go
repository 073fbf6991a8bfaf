// Package cache реализует явный кэш выборок заказов, расположенный снаружи
// сервиса жизненного цикла: ключ строится из области видимости пользователя и
// фильтра, инвалидация выполняется вызывающей стороной при каждой записи.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

// OrdersCache хранит результаты выборок с TTL.
// Просроченные записи вычищаются лениво при чтении.
type OrdersCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

type entry struct {
	orders    []domain.Order
	expiresAt time.Time
}

// DefaultTTL — срок жизни записи по умолчанию.
const DefaultTTL = 30 * time.Second

// NewOrdersCache создаёт кэш; ttl<=0 заменяется на DefaultTTL.
func NewOrdersCache(ttl time.Duration) *OrdersCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &OrdersCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Key строит ключ кэша из имени пользователя и фильтра.
// Username входит в ключ, потому что он определяет область видимости выборки.
func Key(username string, filter domain.OrderFilter) string {
	status := "*"
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	minPrice := "*"
	if filter.MinPrice != nil {
		minPrice = filter.MinPrice.String()
	}
	maxPrice := "*"
	if filter.MaxPrice != nil {
		maxPrice = filter.MaxPrice.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s", username, status, minPrice, maxPrice)
}

// Get возвращает закэшированную выборку, если она ещё не просрочена.
func (c *OrdersCache) Get(key string) ([]domain.Order, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Перепроверяем под write-блокировкой: запись могли успеть обновить.
		if current, still := c.entries[key]; still && time.Now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	result := make([]domain.Order, len(e.orders))
	copy(result, e.orders)
	return result, true
}

// Put сохраняет выборку под ключом.
func (c *OrdersCache) Put(key string, orders []domain.Order) {
	stored := make([]domain.Order, len(orders))
	copy(stored, orders)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		orders:    stored,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate сбрасывает весь кэш; вызывается при каждой записи заказа,
// так как одна запись может изменить произвольное число выборок.
func (c *OrdersCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len возвращает число записей, включая ещё не вычищенные просроченные.
func (c *OrdersCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
