package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

// userStoreInMemory — in-memory реализация UserStore.
type userStoreInMemory struct {
	mu     sync.RWMutex
	byName map[string]domain.User
	nextID int64
}

// NewUserStore возвращает in-memory хранилище пользователей.
func NewUserStore() domain.UserStore {
	return &userStoreInMemory{
		byName: make(map[string]domain.User),
	}
}

// FindByUsername возвращает пользователя или ErrUserNotFound.
func (s *userStoreInMemory) FindByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byName[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// Create сохраняет пользователя, если имя ещё не занято.
func (s *userStoreInMemory) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[user.Username]; exists {
		return domain.ErrUsernameTaken
	}

	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now().UTC()
	s.byName[user.Username] = *user
	return nil
}

var _ domain.UserStore = (*userStoreInMemory)(nil)
