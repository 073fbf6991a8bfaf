package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Bayazov/OrderManagement/internal/cache"
	"github.com/Bayazov/OrderManagement/internal/domain"
	"github.com/Bayazov/OrderManagement/internal/metrics"
	"github.com/Bayazov/OrderManagement/internal/service/order"
)

// Handler обслуживает REST-эндпоинты заказов.
type Handler struct {
	service *order.Service
	cache   *cache.OrdersCache
	metrics *metrics.Metrics
	logger  *log.Entry
}

// NewHandler создаёт обработчик поверх сервиса заказов.
func NewHandler(service *order.Service, queryCache *cache.OrdersCache, m *metrics.Metrics, logger *log.Entry) *Handler {
	return &Handler{
		service: service,
		cache:   queryCache,
		metrics: m,
		logger:  logger.WithField("component", "http"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFromError переводит доменные ошибки в HTTP-коды.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOrderVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidOrder), errors.Is(err, domain.ErrTotalPriceMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Username: principal.Username, Role: string(principal.Role)})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var dto OrderDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	input, err := dto.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), principal.Username, input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.cache.Invalidate()
	if h.metrics != nil {
		h.metrics.RecordOrderCreated()
	}
	writeJSON(w, http.StatusOK, toOrderDTO(created))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var dto OrderDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	input, err := dto.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), principal.Username, orderID, input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.cache.Invalidate()
	if h.metrics != nil {
		h.metrics.RecordOrderUpdated()
	}
	writeJSON(w, http.StatusOK, toOrderDTO(updated))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	found, err := h.service.Get(r.Context(), principal.Username, orderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(found))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key(principal.Username, filter)
	if cached, ok := h.cache.Get(key); ok {
		if h.metrics != nil {
			h.metrics.RecordCacheHit()
		}
		writeJSON(w, http.StatusOK, toOrderDTOs(cached))
		return
	}
	if h.metrics != nil {
		h.metrics.RecordCacheMiss()
	}

	orders, err := h.service.List(r.Context(), principal.Username, filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.cache.Put(key, orders)
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.service.Delete(r.Context(), principal.Username, orderID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.cache.Invalidate()
	if h.metrics != nil {
		h.metrics.RecordOrderDeleted()
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseOrderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
}

// filterFromQuery разбирает параметры status/minPrice/maxPrice; отсутствующий
// параметр оставляет соответствующее поле фильтра пустым.
func filterFromQuery(r *http.Request) (domain.OrderFilter, error) {
	var filter domain.OrderFilter
	query := r.URL.Query()

	if raw := query.Get("status"); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			return domain.OrderFilter{}, err
		}
		filter.Status = &status
	}
	if raw := query.Get("minPrice"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.OrderFilter{}, errors.New("invalid minPrice")
		}
		filter.MinPrice = &min
	}
	if raw := query.Get("maxPrice"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.OrderFilter{}, errors.New("invalid maxPrice")
		}
		filter.MaxPrice = &max
	}
	return filter, nil
}
