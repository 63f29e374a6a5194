// Package realtime pushes notifications to websocket clients subscribed to channel keys.
package realtime

import (
	"context"
	"strings"
	"sync"

	"ambulance/pkg/logger"
)

const (
	clientSendBuffer = 64
	publishBuffer    = 256
)

// Client is one connected websocket. Send is closed by the hub when the client is removed.
type Client struct {
	ID       string
	ActorID  string
	Channels []string
	Send     chan []byte
}

func NewClient(id, actorID string, channels []string) *Client {
	return &Client{
		ID:       id,
		ActorID:  actorID,
		Channels: channels,
		Send:     make(chan []byte, clientSendBuffer),
	}
}

type delivery struct {
	channels []string
	data     []byte
}

// Hub owns all subscription state. Mutations happen on the Run goroutine; the counters
// read it under mu.
type Hub struct {
	log *logger.Logger

	register   chan *Client
	unregister chan *Client
	publish    chan delivery
	done       chan struct{}

	mu        sync.RWMutex
	exact     map[string]map[*Client]struct{}
	wildcards map[string]map[*Client]struct{}
	clients   map[*Client]struct{}
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan delivery, publishBuffer),
		done:       make(chan struct{}),
		exact:      make(map[string]map[*Client]struct{}),
		wildcards:  make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

// Run processes registrations and deliveries until ctx is cancelled, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.remove(c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.add(c)
			h.mu.Unlock()
			h.log.Debug("Realtime client connected", "client_id", c.ID, "actor_id", c.ActorID, "channels", c.Channels)
		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
			h.log.Debug("Realtime client disconnected", "client_id", c.ID)
		case d := <-h.publish:
			h.broadcast(d)
		}
	}
}

// Register reports false when the hub has already stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues data for every client subscribed to any of channels. A client matching
// several channels receives it once.
func (h *Hub) Publish(channels []string, data []byte) {
	select {
	case h.publish <- delivery{channels: channels, data: data}:
	default:
		h.log.Warn("Realtime publish dropped, hub busy", "channels", channels)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers(channel))
}

func (h *Hub) add(c *Client) {
	h.clients[c] = struct{}{}
	for _, ch := range c.Channels {
		index := h.exact
		if prefix, ok := wildcardPrefix(ch); ok {
			index, ch = h.wildcards, prefix
		}
		if index[ch] == nil {
			index[ch] = make(map[*Client]struct{})
		}
		index[ch][c] = struct{}{}
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for _, ch := range c.Channels {
		index := h.exact
		if prefix, ok := wildcardPrefix(ch); ok {
			index, ch = h.wildcards, prefix
		}
		delete(index[ch], c)
		if len(index[ch]) == 0 {
			delete(index, ch)
		}
	}
	delete(h.clients, c)
	close(c.Send)
}

func (h *Hub) subscribers(channel string) map[*Client]struct{} {
	out := make(map[*Client]struct{})
	for c := range h.exact[channel] {
		out[c] = struct{}{}
	}
	for prefix, set := range h.wildcards {
		if strings.HasPrefix(channel, prefix) {
			for c := range set {
				out[c] = struct{}{}
			}
		}
	}
	return out
}

func (h *Hub) broadcast(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := make(map[*Client]struct{})
	for _, ch := range d.channels {
		for c := range h.subscribers(ch) {
			targets[c] = struct{}{}
		}
	}

	for c := range targets {
		select {
		case c.Send <- d.data:
		default:
			h.log.Warn("Realtime client too slow, disconnecting", "client_id", c.ID)
			h.remove(c)
		}
	}
}

// wildcardPrefix turns "admin.*" into "admin.".
func wildcardPrefix(channel string) (string, bool) {
	if strings.HasSuffix(channel, ".*") {
		return strings.TrimSuffix(channel, "*"), true
	}
	return "", false
}
