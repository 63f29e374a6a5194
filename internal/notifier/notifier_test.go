package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ambulance/pkg/kafka"
	"ambulance/pkg/logger"
	"ambulance/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	got   []model.Notification
	err   error
	block chan struct{}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, n model.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingSink) notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.got...)
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{err: errors.New("sink down")}
	d := NewDispatcher(Config{BufferSize: 4, Workers: 1}, logger.Discard(), first, second)
	d.Start()

	d.Emit(model.EventBookingCreated, []string{"booking.1", "user.u1"}, map[string]string{"booking_id": "1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Stop(ctx)

	require.Len(t, first.notifications(), 1)
	require.Len(t, second.notifications(), 1, "a failing sink still receives the notification")

	n := first.notifications()[0]
	assert.Equal(t, model.EventBookingCreated, n.Event)
	assert.Equal(t, []string{"booking.1", "user.u1"}, n.Channels)
	assert.NotEmpty(t, n.ID)
	assert.JSONEq(t, `{"booking_id":"1"}`, string(n.Payload))
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1, Workers: 1}, logger.Discard(), sink)
	d.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Emit("test.event", []string{"c"}, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	close(sink.block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Stop(ctx)

	assert.Less(t, len(sink.notifications()), 10)
	assert.NotEmpty(t, sink.notifications())
}

func TestDispatcher_EmitAfterStopIsDropped(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{BufferSize: 2, Workers: 1}, logger.Discard(), sink)
	d.Start()
	d.Stop(context.Background())

	assert.NotPanics(t, func() {
		d.Emit("late.event", nil, nil)
	})
	assert.Empty(t, sink.notifications())
}

func TestDispatcher_UnencodablePayloadIsDropped(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{BufferSize: 2, Workers: 1}, logger.Discard(), sink)
	d.Start()

	d.Emit("bad.event", nil, make(chan int))
	d.Stop(context.Background())

	assert.Empty(t, sink.notifications())
}

type fakePublisher struct {
	msgs []kafka.Message
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestKafkaSink_KeysByFirstChannel(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewKafkaSink(pub, "dispatch")

	n := model.Notification{ID: "n-1", Event: model.EventPaymentCompleted, Channels: []string{"booking.42", "admin.payments"}, Payload: json.RawMessage(`{}`)}
	require.NoError(t, sink.Deliver(context.Background(), n))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "booking.42", msg.Key)
	assert.Equal(t, "n-1", msg.GetEventID())
	assert.Equal(t, model.EventPaymentCompleted, msg.GetEventType())

	var decoded model.Notification
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, n.Channels, decoded.Channels)
}

func TestKafkaSink_PropagatesPublishError(t *testing.T) {
	sink := NewKafkaSink(&fakePublisher{err: errors.New("broker unavailable")}, "dispatch")
	err := sink.Deliver(context.Background(), model.Notification{ID: "n-2"})
	assert.ErrorContains(t, err, "broker unavailable")
}

type fakeHub struct {
	channels []string
	data     []byte
}

func (h *fakeHub) Publish(channels []string, data []byte) {
	h.channels = channels
	h.data = data
}

func TestHubSink_PublishesEnvelope(t *testing.T) {
	hub := &fakeHub{}
	n := model.Notification{ID: "n-3", Event: model.EventBookingStatusChanged, Channels: []string{"user.u1"}, Payload: json.RawMessage(`{"new_status":"confirmed"}`)}

	require.NoError(t, NewHubSink(hub).Deliver(context.Background(), n))
	assert.Equal(t, []string{"user.u1"}, hub.channels)

	var decoded model.Notification
	require.NoError(t, json.Unmarshal(hub.data, &decoded))
	assert.Equal(t, "n-3", decoded.ID)
	assert.JSONEq(t, `{"new_status":"confirmed"}`, string(decoded.Payload))
}
