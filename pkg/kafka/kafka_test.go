package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ambulance/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("booking.65f0").
		WithValue(map[string]string{"status": "confirmed"}).
		WithEventType("booking.status_changed").
		WithSource("dispatch").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "booking.65f0", msg.Key)
	assert.JSONEq(t, `{"status":"confirmed"}`, string(msg.Value))
	assert.Equal(t, "booking.status_changed", msg.GetEventType())
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	var decoded map[string]string
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "confirmed", decoded["status"])
}

func TestMessageBuilder_EncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestRetryCount(t *testing.T) {
	msg := Message{}
	assert.Equal(t, 0, msg.GetRetryCount())

	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
	assert.Equal(t, "12", msg.Headers[HeaderRetryCount])
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"tagged transient", NewTransientError("hub busy", nil), ErrorTypeTransient},
		{"wrapped tagged permanent", fmt.Errorf("wrap: %w", NewPermanentError("bad payload", nil)), ErrorTypePermanent},
		{"network text", errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{"unknown", errors.New("json: cannot unmarshal"), ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("timeout", nil)
	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(errors.New("bad"), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}

func TestConsumer_ProcessMessageRetriesTransientErrors(t *testing.T) {
	calls := 0
	c := &Consumer{
		maxRetries: 2,
		log:        logger.Discard(),
		handler: func(ctx context.Context, msg Message) error {
			calls++
			if calls < 2 {
				return NewTransientError("busy", nil)
			}
			return nil
		},
	}

	err := c.processMessage(context.Background(), Message{Headers: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestConsumer_ProcessMessageStopsOnPermanentError(t *testing.T) {
	calls := 0
	var order []string
	c := &Consumer{
		maxRetries: 5,
		log:        logger.Discard(),
		handler: func(ctx context.Context, msg Message) error {
			calls++
			order = append(order, "handler")
			return NewPermanentError("bad payload", nil)
		},
	}
	c.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		order = append(order, "middleware")
		return next(ctx, msg)
	})

	err := c.processMessage(context.Background(), Message{Headers: map[string]string{}})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"middleware", "handler"}, order)
}
