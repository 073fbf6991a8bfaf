package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bayazov/OrderManagement/internal/cache"
	"github.com/Bayazov/OrderManagement/internal/domain"
	"github.com/Bayazov/OrderManagement/internal/metrics"
	"github.com/Bayazov/OrderManagement/internal/service/order"
	"github.com/Bayazov/OrderManagement/internal/storage/memory"
	transport "github.com/Bayazov/OrderManagement/internal/transport/http"

	"github.com/prometheus/client_golang/prometheus"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

type dropSink struct{}

func (dropSink) Publish(context.Context, domain.OrderStatusChanged) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	users := memory.NewUserStore()
	for _, seed := range []struct {
		username string
		password string
		role     domain.Role
	}{
		{"alice", "secret", domain.RoleUser},
		{"bob", "secret", domain.RoleUser},
		{"admin", "admin", domain.RoleAdmin},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.MinCost)
		require.NoError(t, err)
		user := domain.User{Username: seed.username, PasswordHash: string(hash), Role: seed.role}
		require.NoError(t, users.Create(context.Background(), &user))
	}

	service := order.New(memory.NewOrderStore(), users, dropSink{}, loggerForTests())
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	router := transport.NewRouter(service, users, cache.NewOrdersCache(time.Minute), m, loggerForTests())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, server *httptest.Server, method, path, username, password string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if username != "" {
		req.SetBasicAuth(username, password)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeOrder(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func validOrderBody() map[string]any {
	return map[string]any{
		"customerName": "Alice Smith",
		"status":       "PENDING",
		"totalPrice":   "99.98",
		"products": []map[string]any{
			{"name": "Widget", "price": "49.99", "quantity": 2},
		},
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/orders", "", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	resp = doRequest(t, server, http.MethodGet, "/orders", "alice", "wrong", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/login", "admin", "admin", nil)
	body := decodeOrder(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "admin", body["username"])
	require.Equal(t, "ADMIN", body["role"])
}

func TestOrderLifecycle(t *testing.T) {
	server := newTestServer(t)

	// Создание.
	resp := doRequest(t, server, http.MethodPost, "/orders", "alice", "secret", validOrderBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decodeOrder(t, resp)
	orderID := int64(created["orderId"].(float64))
	require.NotZero(t, orderID)
	require.Equal(t, "PENDING", created["status"])

	// Чтение.
	resp = doRequest(t, server, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), "alice", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeOrder(t, resp)
	require.Equal(t, "Alice Smith", got["customerName"])

	// Обновление со сменой статуса.
	update := validOrderBody()
	update["status"] = "CONFIRMED"
	resp = doRequest(t, server, http.MethodPut, fmt.Sprintf("/orders/%d", orderID), "alice", "secret", update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeOrder(t, resp)
	require.Equal(t, "CONFIRMED", updated["status"])

	// Список.
	resp = doRequest(t, server, http.MethodGet, "/orders?status=CONFIRMED", "alice", "secret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)

	// Удаление.
	resp = doRequest(t, server, http.MethodDelete, fmt.Sprintf("/orders/%d", orderID), "alice", "secret", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, server, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), "alice", "secret", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateValidationErrors(t *testing.T) {
	server := newTestServer(t)

	// Расхождение суммы.
	body := validOrderBody()
	body["totalPrice"] = "50.00"
	resp := doRequest(t, server, http.MethodPost, "/orders", "alice", "secret", body)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Пустой список позиций.
	body = validOrderBody()
	body["products"] = []map[string]any{}
	resp = doRequest(t, server, http.MethodPost, "/orders", "alice", "secret", body)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Неизвестный статус.
	body = validOrderBody()
	body["status"] = "SHIPPED"
	resp = doRequest(t, server, http.MethodPost, "/orders", "alice", "secret", body)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccessDeniedMapsTo403(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/orders", "alice", "secret", validOrderBody())
	created := decodeOrder(t, resp)
	orderID := int64(created["orderId"].(float64))

	resp = doRequest(t, server, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), "bob", "secret", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Администратор видит чужой заказ.
	resp = doRequest(t, server, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), "admin", "admin", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListIsolationBetweenUsers(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/orders", "alice", "secret", validOrderBody())
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// bob не видит заказов alice, и кэш alice не протекает в его выборку.
	resp = doRequest(t, server, http.MethodGet, "/orders", "alice", "secret", nil)
	defer resp.Body.Close()
	var aliceOrders []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&aliceOrders))
	require.Len(t, aliceOrders, 1)

	resp = doRequest(t, server, http.MethodGet, "/orders", "bob", "secret", nil)
	defer resp.Body.Close()
	var bobOrders []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bobOrders))
	require.Empty(t, bobOrders)
}

func TestBadRequests(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/orders/not-a-number", "alice", "secret", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, server, http.MethodGet, "/orders?minPrice=abc", "alice", "secret", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, server, http.MethodGet, "/orders/404", "alice", "secret", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
