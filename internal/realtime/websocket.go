package realtime

import (
	"net/http"
	"time"

	httputil "ambulance/pkg/http"
	"ambulance/pkg/logger"
	"ambulance/pkg/middleware"
	"ambulance/pkg/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChannelsFor returns the channels an actor is subscribed to on connect.
func ChannelsFor(actor model.Actor) []string {
	channels := []string{model.UserChannel(actor.ID)}
	switch actor.Role {
	case model.RoleDriver:
		channels = append(channels, model.DriverChannel(actor.ID))
	case model.RoleAdmin:
		channels = append(channels, "admin.*")
	}
	return channels
}

// ServeWS upgrades the request and streams hub deliveries to the connection. It expects
// the actor to be on the request context.
func ServeWS(hub *Hub, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.RequireActor(r)
		if err != nil {
			if writeErr := httputil.WriteError(w, err); writeErr != nil {
				log.Error("failed to write error response", "handler", "ServeWS", "operation", "WriteError", "error", writeErr)
			}
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("Websocket upgrade failed", "actor_id", actor.ID, "error", err)
			return
		}

		client := NewClient(uuid.NewString(), actor.ID, ChannelsFor(actor))
		if !hub.Register(client) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}

		go writePump(client, conn)
		go readPump(hub, client, conn)
	})
}

// readPump only services control frames; clients cannot change their subscriptions.
func readPump(hub *Hub, client *Client, conn *websocket.Conn) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(client *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
