package realtime

import (
	"context"
	"fmt"

	"ambulance/pkg/kafka"
	kafka_config "ambulance/pkg/kafka/config"
	kafka_middleware "ambulance/pkg/kafka/middleware"
	"ambulance/pkg/logger"
	"ambulance/pkg/model"
)

// Relay feeds notifications published on the notification topic into the local hub, so
// every dispatch instance reaches its own websocket clients.
type Relay struct {
	consumer *kafka.Consumer
	log      *logger.Logger
}

func NewRelay(hub *Hub, cfg *kafka_config.Config, topic, groupID string, log *logger.Logger) (*Relay, error) {
	consumer, err := kafka.NewConsumer(cfg, topic, groupID, "", RelayHandler(hub), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay consumer: %w", err)
	}
	if cfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
	}
	return &Relay{consumer: consumer, log: log}, nil
}

// RelayHandler decodes a notification envelope and publishes it to its channels.
// Undecodable messages are permanent failures.
func RelayHandler(hub *Hub) kafka.MessageHandler {
	return func(_ context.Context, msg kafka.Message) error {
		var n model.Notification
		if err := msg.DecodeValue(&n); err != nil {
			return kafka.NewPermanentError("invalid notification envelope", err)
		}
		if len(n.Channels) == 0 {
			return nil
		}
		hub.Publish(n.Channels, msg.Value)
		return nil
	}
}

func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("Realtime relay started")
	return r.consumer.Start(ctx)
}

func (r *Relay) Close() error {
	return r.consumer.Close()
}
