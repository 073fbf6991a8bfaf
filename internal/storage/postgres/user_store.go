package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

type userStore struct {
	db *sql.DB
}

// NewUserStore создаёт PostgreSQL-реализацию UserStore.
func NewUserStore(store *Store) domain.UserStore {
	return &userStore{db: store.DB()}
}

// FindByUsername возвращает пользователя или ErrUserNotFound.
func (s *userStore) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user domain.User
	var role string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	user.Role = domain.Role(role)

	return user, nil
}

// Create сохраняет пользователя; занятое имя даёт ErrUsernameTaken.
func (s *userStore) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, user.Username, user.PasswordHash, string(user.Role)).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

var _ domain.UserStore = (*userStore)(nil)
