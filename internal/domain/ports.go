package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderFilter задаёт необязательные условия выборки заказов.
// Нулевой указатель означает отсутствие ограничения по измерению.
type OrderFilter struct {
	// Status — точное совпадение статуса.
	Status *OrderStatus
	// MinPrice — нижняя граница итоговой суммы, включительно.
	MinPrice *decimal.Decimal
	// MaxPrice — верхняя граница итоговой суммы, включительно.
	MaxPrice *decimal.Decimal
}

// OrderStore описывает требования к хранилищу заказов.
// Все операции чтения исключают мягко удалённые записи.
type OrderStore interface {
	// Create сохраняет новый заказ, присваивая идентификаторы заказу и позициям.
	Create(ctx context.Context, order *Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	// List возвращает все заказы, удовлетворяющие фильтру.
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	// ListByOwner возвращает заказы владельца, удовлетворяющие фильтру.
	ListByOwner(ctx context.Context, ownerID int64, filter OrderFilter) ([]Order, error)
	// Update сохраняет изменённый заказ, включая позиционную сверку позиций
	// и флаг мягкого удаления. При гонке версий возвращает ErrOrderVersionConflict.
	Update(ctx context.Context, order *Order) error
}

// UserStore описывает требования к хранилищу пользователей.
type UserStore interface {
	// FindByUsername возвращает пользователя или ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (User, error)
	// Create сохраняет нового пользователя; занятое имя даёт ErrUsernameTaken.
	Create(ctx context.Context, user *User) error
}

// EventSink принимает уведомления о смене статуса заказа.
// Ошибка публикации не фатальна для вызывающего.
type EventSink interface {
	Publish(ctx context.Context, event OrderStatusChanged) error
}
