package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/Bayazov/OrderManagement/internal/messaging/kafka"
)

// status-notifier читает события смены статуса заказа и пишет уведомления в лог.
// Реальная отправка (почта, push) подключается вместо логирования.
func main() {
	_ = godotenv.Load()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	var (
		brokersFlag string
		groupID     string
	)
	flag.StringVar(&brokersFlag, "brokers", "", "comma-separated kafka brokers (fallback: KAFKA_BROKERS)")
	flag.StringVar(&groupID, "group", "status-notifier", "kafka consumer group id")
	flag.Parse()

	if brokersFlag == "" {
		brokersFlag = os.Getenv("KAFKA_BROKERS")
	}
	if brokersFlag == "" {
		log.Fatal("KAFKA_BROKERS (or -brokers) is required")
	}
	brokers := strings.Split(brokersFlag, ",")

	logger := log.WithField("component", "status-notifier")

	consumer, err := kafka.NewConsumer(brokers, groupID, []string{kafka.TopicOrderStatusChanged}, handleMessage(logger))
	if err != nil {
		log.WithError(err).Fatal("failed to create kafka consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(log.Fields{
		"brokers": brokers,
		"group":   groupID,
		"topic":   kafka.TopicOrderStatusChanged,
	}).Info("запускаем status-notifier")

	if err := consumer.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start consumer")
	}

	<-ctx.Done()

	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("consumer stopped with error")
	}
	logger.Info("status-notifier остановлен")
}

func handleMessage(logger *log.Entry) kafka.MessageHandler {
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		var event kafka.StatusChangedEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Warn("skipping malformed event")
			return nil
		}

		logger.WithFields(log.Fields{
			"event_id":   event.EventID,
			"order_id":   event.OrderID,
			"old_status": event.OldStatus,
			"new_status": event.NewStatus,
		}).Infof("order %d: %s -> %s", event.OrderID, event.OldStatus, event.NewStatus)
		return nil
	}
}
