package kafka

import (
	"context"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/Bayazov/OrderManagement/internal/domain"
	"github.com/Bayazov/OrderManagement/internal/metrics"
)

// Sink реализует domain.EventSink поверх Kafka producer.
// Ключом сообщения служит идентификатор заказа, чтобы события одного заказа
// попадали в одну партицию и сохраняли порядок.
type Sink struct {
	producer *Producer
	metrics  *metrics.Metrics
	logger   *log.Entry
}

// NewSink конструирует sink; metrics может быть nil.
func NewSink(producer *Producer, m *metrics.Metrics, logger *log.Entry) *Sink {
	if logger == nil {
		logger = log.WithField("component", "kafka-sink")
	}
	return &Sink{
		producer: producer,
		metrics:  m,
		logger:   logger,
	}
}

// Publish отправляет событие о смене статуса в Kafka.
func (s *Sink) Publish(_ context.Context, event domain.OrderStatusChanged) error {
	payload := NewStatusChangedEvent(event)
	key := strconv.FormatInt(event.OrderID, 10)

	if err := s.producer.PublishEvent(TopicOrderStatusChanged, key, payload); err != nil {
		if s.metrics != nil {
			s.metrics.RecordEventPublishFailed()
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordEventPublished()
	}
	return nil
}

var _ domain.EventSink = (*Sink)(nil)
