package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

// Service — единственная точка создания, изменения, выборки и удаления заказов.
// Валидация, сверка суммы и авторизация выполняются здесь, до любого обращения
// к хранилищу на запись.
//
// Сервис не хранит собственного состояния и не ограничивает переходы между
// статусами: любой валидный статус из входа принимается, а смена статуса лишь
// фиксируется событием OrderStatusChanged.
type Service struct {
	orders domain.OrderStore
	users  domain.UserStore
	events domain.EventSink
	logger *log.Entry
}

// New конструирует сервис с зависимостями.
func New(orders domain.OrderStore, users domain.UserStore, events domain.EventSink, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		orders: orders,
		users:  users,
		events: events,
		logger: logger,
	}
}

// Create валидирует заказ, привязывает владельца и сохраняет его.
// Событие при создании не публикуется.
func (s *Service) Create(ctx context.Context, username string, input domain.Order) (domain.Order, error) {
	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return domain.Order{}, err
	}

	// Идентификаторы и служебные поля назначает хранилище, вход им не доверяем.
	input.ID = 0
	input.UserID = user.ID
	input.Deleted = false
	input.Version = 0
	for i := range input.Products {
		input.Products[i].ID = 0
	}

	if err := validateOrder(&input); err != nil {
		return domain.Order{}, err
	}

	if err := s.orders.Create(ctx, &input); err != nil {
		s.logger.WithError(err).WithField("username", username).Error("failed to create order")
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_id": input.ID,
		"username": username,
	}).Info("order created")

	return input, nil
}

// Update применяет вход к существующему заказу: имя клиента, статус и сумма
// переносятся как есть, позиции сверяются позиционно. Проверка прав выполняется
// до любой мутации. Если статус изменился, публикуется ровно одно событие
// OrderStatusChanged; отказ публикации не считается ошибкой обновления.
func (s *Service) Update(ctx context.Context, username string, orderID int64, input domain.Order) (domain.Order, error) {
	existing, err := s.loadOrder(ctx, orderID, "Update")
	if err != nil {
		return domain.Order{}, err
	}

	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return domain.Order{}, err
	}
	if !user.CanAccess(existing) {
		return domain.Order{}, fmt.Errorf("%w: user %q cannot update order %d", domain.ErrAccessDenied, username, orderID)
	}

	if err := validateOrder(&input); err != nil {
		return domain.Order{}, err
	}

	oldStatus := existing.Status
	existing.ApplyUpdate(input)

	if err := s.orders.Update(ctx, &existing); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"username": username,
		}).Error("failed to update order")
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"username": username,
	}).Info("order updated")

	if oldStatus != existing.Status {
		s.publishStatusChanged(ctx, domain.OrderStatusChanged{
			OrderID:    existing.ID,
			OldStatus:  oldStatus,
			NewStatus:  existing.Status,
			OccurredAt: time.Now().UTC(),
		})
	}

	return existing, nil
}

// List возвращает заказы, видимые пользователю: администратор получает полную
// отфильтрованную выборку, обычный пользователь — только собственные заказы.
func (s *Service) List(ctx context.Context, username string, filter domain.OrderFilter) ([]domain.Order, error) {
	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}

	var orders []domain.Order
	if user.IsAdmin() {
		orders, err = s.orders.List(ctx, filter)
	} else {
		orders, err = s.orders.ListByOwner(ctx, user.ID, filter)
	}
	if err != nil {
		s.logger.WithError(err).WithField("username", username).Error("failed to list orders")
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return orders, nil
}

// Get возвращает заказ по идентификатору, если пользователь владелец или администратор.
func (s *Service) Get(ctx context.Context, username string, orderID int64) (domain.Order, error) {
	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := s.loadOrder(ctx, orderID, "Get")
	if err != nil {
		return domain.Order{}, err
	}

	if !user.CanAccess(order) {
		return domain.Order{}, fmt.Errorf("%w: user %q cannot access order %d", domain.ErrAccessDenied, username, orderID)
	}

	return order, nil
}

// Delete мягко удаляет заказ: статус переводится в CANCELLED, запись помечается
// удалённой и больше не появляется в Get/List.
func (s *Service) Delete(ctx context.Context, username string, orderID int64) error {
	user, err := s.resolveUser(ctx, username)
	if err != nil {
		return err
	}

	order, err := s.loadOrder(ctx, orderID, "Delete")
	if err != nil {
		return err
	}

	if !user.CanAccess(order) {
		return fmt.Errorf("%w: user %q cannot access order %d", domain.ErrAccessDenied, username, orderID)
	}

	oldStatus := order.Status
	order.Status = domain.OrderStatusCancelled
	order.Deleted = true

	if err := s.orders.Update(ctx, &order); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to delete order")
		return fmt.Errorf("delete order: %w", err)
	}

	if oldStatus != order.Status {
		s.publishStatusChanged(ctx, domain.OrderStatusChanged{
			OrderID:    order.ID,
			OldStatus:  oldStatus,
			NewStatus:  order.Status,
			OccurredAt: time.Now().UTC(),
		})
	}

	s.logger.WithField("order_id", orderID).Info("order deleted")
	return nil
}

func (s *Service) resolveUser(ctx context.Context, username string) (domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.logger.WithError(err).WithField("username", username).Warn("failed to resolve acting user")
		return domain.User{}, fmt.Errorf("resolve user %q: %w", username, err)
	}
	return user, nil
}

func (s *Service) loadOrder(ctx context.Context, orderID int64, operation string) (domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"operation": operation,
			"order_id":  orderID,
		}).Warn("failed to load order")
		return domain.Order{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return order, nil
}

// publishStatusChanged отправляет событие в sink. Публикация — побочный канал:
// отказ логируется и проглатывается, сохранённое обновление не откатывается.
func (s *Service) publishStatusChanged(ctx context.Context, event domain.OrderStatusChanged) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   event.OrderID,
			"old_status": event.OldStatus,
			"new_status": event.NewStatus,
		}).Warn("failed to publish status change event")
		return
	}
	s.logger.WithFields(log.Fields{
		"order_id":   event.OrderID,
		"old_status": event.OldStatus,
		"new_status": event.NewStatus,
	}).Info("order status change published")
}

// validateOrder выполняет общую для создания и обновления проверку:
// сначала структурные инварианты, затем сверка итоговой суммы.
func validateOrder(order *domain.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order is required", domain.ErrInvalidOrder)
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidOrder, joinErrors(errs))
	}
	return order.ReconcileTotal()
}

func joinErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}
