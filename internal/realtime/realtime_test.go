package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ambulance/pkg/kafka"
	"ambulance/pkg/logger"
	"ambulance/pkg/middleware"
	"ambulance/pkg/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "client channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DeliversOnlyToSubscribers(t *testing.T) {
	hub := startHub(t)

	user := NewClient("c1", "u1", []string{"user.u1"})
	other := NewClient("c2", "u2", []string{"user.u2"})
	require.True(t, hub.Register(user))
	require.True(t, hub.Register(other))

	hub.Publish([]string{"booking.b1", "user.u1"}, []byte(`{"event":"booking.created"}`))

	assert.Equal(t, `{"event":"booking.created"}`, string(receive(t, user)))
	assertNothing(t, other)
}

func TestHub_WildcardSubscription(t *testing.T) {
	hub := startHub(t)

	admin := NewClient("c1", "a1", []string{"user.a1", "admin.*"})
	require.True(t, hub.Register(admin))

	hub.Publish([]string{"admin.fleet"}, []byte("fleet"))
	hub.Publish([]string{"administrator.x"}, []byte("nope"))

	assert.Equal(t, "fleet", string(receive(t, admin)))
	assertNothing(t, admin)
	assert.Equal(t, 1, hub.SubscriberCount("admin.bookings"))
}

func TestHub_ClientMatchingSeveralChannelsReceivesOnce(t *testing.T) {
	hub := startHub(t)

	admin := NewClient("c1", "a1", []string{"user.a1", "admin.*"})
	require.True(t, hub.Register(admin))

	hub.Publish([]string{"user.a1", "admin.bookings"}, []byte("once"))

	assert.Equal(t, "once", string(receive(t, admin)))
	assertNothing(t, admin)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)

	c := NewClient("c1", "u1", []string{"user.u1"})
	require.True(t, hub.Register(c))
	hub.Unregister(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_RegisterAfterStop(t *testing.T) {
	hub := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, hub.Register(NewClient("late", "u1", nil)))
	assert.NotPanics(t, func() { hub.Unregister(NewClient("late", "u1", nil)) })
}

func TestChannelsFor(t *testing.T) {
	assert.Equal(t, []string{"user.u1"}, ChannelsFor(model.Actor{ID: "u1", Role: model.RoleUser}))
	assert.Equal(t, []string{"user.d1", "driver.d1"}, ChannelsFor(model.Actor{ID: "d1", Role: model.RoleDriver}))
	assert.Equal(t, []string{"user.a1", "admin.*"}, ChannelsFor(model.Actor{ID: "a1", Role: model.RoleAdmin}))
}

func TestServeWS_RejectsAnonymous(t *testing.T) {
	hub := startHub(t)
	handler := middleware.ActorContext()(ServeWS(hub, logger.Discard()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServeWS_StreamsSubscribedChannels(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(middleware.ActorContext()(ServeWS(hub, logger.Discard())))
	defer srv.Close()

	header := http.Header{}
	header.Set(middleware.ActorIDHeader, "d7")
	header.Set(middleware.ActorRoleHeader, string(model.RoleDriver))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount("driver.d7") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish([]string{"driver.d7"}, []byte(`{"event":"booking.status_changed"}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"booking.status_changed"}`, string(msg))
}

func TestRelayHandler(t *testing.T) {
	hub := startHub(t)
	c := NewClient("c1", "u1", []string{"user.u1"})
	require.True(t, hub.Register(c))

	handle := RelayHandler(hub)

	value, err := json.Marshal(model.Notification{ID: "n1", Event: model.EventPaymentCompleted, Channels: []string{"user.u1"}})
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), kafka.Message{Value: value}))
	assert.JSONEq(t, string(value), string(receive(t, c)))

	err = handle(context.Background(), kafka.Message{Value: []byte("not json")})
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}
