package http

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// authMiddleware проверяет HTTP Basic-учётные данные по хранилищу пользователей.
// Аутентифицированный пользователь кладётся в контекст запроса.
type authMiddleware struct {
	users  domain.UserStore
	logger *log.Entry
}

func newAuthMiddleware(users domain.UserStore, logger *log.Entry) *authMiddleware {
	if logger == nil {
		logger = log.WithField("component", "http-auth")
	}
	return &authMiddleware{users: users, logger: logger}
}

func (a *authMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			a.unauthorized(w)
			return
		}

		user, err := a.users.FindByUsername(r.Context(), username)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				a.logger.WithError(err).WithField("username", username).Error("failed to look up user")
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			a.unauthorized(w)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			a.unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *authMiddleware) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="orders"`)
	writeError(w, http.StatusUnauthorized, "authentication required")
}

// principalFromContext возвращает аутентифицированного пользователя запроса.
func principalFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(principalKey).(domain.User)
	return user, ok
}
