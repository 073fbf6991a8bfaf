package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidOrder — структурно некорректный заказ; детали добавляются обёрткой.
	ErrInvalidOrder = errors.New("invalid order")
	// Ошибка отсутствующего имени клиента.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка слишком длинного имени клиента (> 100 символов).
	ErrCustomerNameTooLong = errors.New("customer name must not exceed 100 characters")
	// Ошибка отсутствующего статуса заказа.
	ErrStatusRequired = errors.New("order status is required")
	// Ошибка неизвестного статуса заказа.
	ErrStatusInvalid = errors.New("order status is invalid")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrProductsRequired = errors.New("order must contain at least one product")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка слишком длинного названия товара (> 100 символов).
	ErrProductNameTooLong = errors.New("product name must not exceed 100 characters")
	// Ошибка при неположительной цене товара.
	ErrProductPriceInvalid = errors.New("product price must be greater than zero")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrProductQuantityInvalid = errors.New("product quantity must be greater than zero")
	// ErrTotalPriceMismatch сопоставляется через errors.Is с *TotalPriceMismatchError.
	ErrTotalPriceMismatch = errors.New("total price does not match the sum of product prices")
	// ErrOrderNotFound возвращается, если заказ не найден или мягко удалён.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken возвращается при попытке создать пользователя с занятым именем.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrAccessDenied — у пользователя нет прав на запрошенный заказ.
	ErrAccessDenied = errors.New("access denied")
	// ErrOrderVersionConflict сигнализирует о проигрыше в гонке конкурентных обновлений.
	ErrOrderVersionConflict = errors.New("order version conflict")
)

// TotalPriceMismatchError несёт ожидаемую и фактическую суммы для диагностики.
type TotalPriceMismatchError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *TotalPriceMismatchError) Error() string {
	return fmt.Sprintf("total price mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// Is позволяет проверять ошибку через errors.Is(err, ErrTotalPriceMismatch).
func (e *TotalPriceMismatchError) Is(target error) bool {
	return target == ErrTotalPriceMismatch
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
