package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус заказа в его жизненном цикле.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, но ещё не подтверждён.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusConfirmed — заказ подтверждён и готов к исполнению.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// maxNameLength ограничивает имя клиента и название товара.
const maxNameLength = 100

// Valid сообщает, относится ли значение к известным статусам.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus разбирает статус из внешнего представления без учёта регистра.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidOrder, raw)
	}
	return status, nil
}

// Product представляет одну позицию заказа.
// Позиция принадлежит ровно одному заказу и не имеет собственного жизненного цикла.
type Product struct {
	// ID присваивается хранилищем при первом сохранении.
	ID int64
	// Name — название товара.
	Name string
	// Price — цена за единицу, фиксированная точность 2 знака.
	Price decimal.Decimal
	// Quantity — количество единиц товара.
	Quantity int
}

// Order агрегирует состояние заказа и его позиции.
// Порядок позиций значим: обновление сверяет их по индексу.
type Order struct {
	ID           int64
	CustomerName string
	Status       OrderStatus
	TotalPrice   decimal.Decimal
	// UserID ссылается на владельца заказа.
	UserID int64
	// Products хранит позиции в порядке добавления.
	Products []Product
	// Deleted отмечает мягко удалённый заказ; такие записи не видны в выборках.
	Deleted   bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет структурные инварианты заказа и возвращает список замечаний.
// Сверка итоговой суммы выполняется отдельно через ReconcileTotal.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	name := strings.TrimSpace(o.CustomerName)
	if name == "" {
		errs = append(errs, ErrCustomerNameRequired)
	} else if len(name) > maxNameLength {
		errs = append(errs, ErrCustomerNameTooLong)
	}
	if o.Status == "" {
		errs = append(errs, ErrStatusRequired)
	} else if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}
	if len(o.Products) == 0 {
		errs = append(errs, ErrProductsRequired)
	}

	for _, p := range o.Products {
		productName := strings.TrimSpace(p.Name)
		if productName == "" {
			errs = append(errs, ErrProductNameRequired)
		} else if len(productName) > maxNameLength {
			errs = append(errs, ErrProductNameTooLong)
		}
		if !p.Price.IsPositive() {
			errs = append(errs, ErrProductPriceInvalid)
		}
		if p.Quantity <= 0 {
			errs = append(errs, ErrProductQuantityInvalid)
		}
	}

	return errs
}

// ExpectedTotal вычисляет сумму позиций qty * price,
// округлённую до 2 знаков по правилу half-up.
func (o *Order) ExpectedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Products {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}
	return total.Round(2)
}

// ReconcileTotal сверяет заявленную сумму заказа с суммой позиций.
// Возвращает *TotalPriceMismatchError при расхождении; отсутствующая сумма
// (нулевое значение) тоже считается расхождением.
func (o *Order) ReconcileTotal() error {
	expected := o.ExpectedTotal()
	actual := o.TotalPrice.Round(2)
	if !expected.Equal(actual) {
		return &TotalPriceMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// ApplyUpdate переносит имя клиента, статус и сумму из input как есть
// и позиционно сверяет список позиций.
func (o *Order) ApplyUpdate(input Order) {
	o.CustomerName = input.CustomerName
	o.Status = input.Status
	o.TotalPrice = input.TotalPrice
	o.reconcileProducts(input.Products)
}

// reconcileProducts обновляет позиции по индексу: пересекающиеся слоты
// перезаписываются с сохранением идентичности строки, новые добавляются в конец,
// лишние усекаются.
func (o *Order) reconcileProducts(next []Product) {
	for i, p := range next {
		if i < len(o.Products) {
			o.Products[i].Name = p.Name
			o.Products[i].Price = p.Price
			o.Products[i].Quantity = p.Quantity
		} else {
			o.Products = append(o.Products, Product{
				Name:     p.Name,
				Price:    p.Price,
				Quantity: p.Quantity,
			})
		}
	}
	if len(o.Products) > len(next) {
		o.Products = o.Products[:len(next)]
	}
}
