package domain

import "time"

// Role определяет уровень доступа пользователя.
type Role string

const (
	// RoleUser видит только собственные заказы.
	RoleUser Role = "USER"
	// RoleAdmin видит и изменяет любые заказы.
	RoleAdmin Role = "ADMIN"
)

// User представляет учётную запись сервиса.
// PasswordHash непрозрачен для доменной логики — его интерпретирует только
// слой аутентификации.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// IsAdmin сообщает, обладает ли пользователь административной ролью.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanAccess проверяет, может ли пользователь работать с заказом:
// либо он владелец, либо администратор.
func (u User) CanAccess(order Order) bool {
	return u.IsAdmin() || order.UserID == u.ID
}
