package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"ambulance/pkg/kafka"
	"ambulance/pkg/model"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaSink writes every notification to the notification topic, keyed by its first
// channel so events for one booking stay ordered within a partition.
type KafkaSink struct {
	publisher Publisher
	source    string
}

func NewKafkaSink(publisher Publisher, source string) *KafkaSink {
	return &KafkaSink{publisher: publisher, source: source}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, n model.Notification) error {
	key := n.ID
	if len(n.Channels) > 0 {
		key = n.Channels[0]
	}

	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(n).
		WithEventID(n.ID).
		WithEventType(n.Event).
		WithSource(s.source).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build notification message: %w", err)
	}

	if err := s.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Broadcaster is satisfied by *realtime.Hub.
type Broadcaster interface {
	Publish(channels []string, data []byte)
}

// HubSink hands notifications to the in-process websocket hub.
type HubSink struct {
	hub Broadcaster
}

func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "hub" }

func (s *HubSink) Deliver(_ context.Context, n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	s.hub.Publish(n.Channels, data)
	return nil
}
