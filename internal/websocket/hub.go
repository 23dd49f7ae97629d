package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cx-tal-miterani/tour-booking/internal/booking"
)

const (
	broadcastBuffer = 256
	clientBuffer    = 32
)

// Hub fans booking events out to the websocket clients watching each tour
type Hub struct {
	clients    map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan booking.Event
	done       chan struct{}
	mu         sync.RWMutex
	logger     logrus.FieldLogger
}

// NewHub creates a new Hub
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan booking.Event, broadcastBuffer),
		done:       make(chan struct{}),
		logger:     logger.WithField("component", "websocket"),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.tourID] == nil {
				h.clients[client.tourID] = make(map[*Client]bool)
			}
			h.clients[client.tourID][client] = true
			count := len(h.clients[client.tourID])
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{"tour_id": client.tourID, "clients": count}).Debug("Client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Error("Failed to marshal event")
				continue
			}

			h.mu.Lock()
			clients := h.clients[event.TourID]
			for client := range clients {
				select {
				case client.send <- data:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{
				"type":    event.Type,
				"tour_id": event.TourID,
				"clients": len(clients),
			}).Debug("Event broadcast")
		}
	}
}

// remove drops client; callers hold h.mu
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.tourID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.tourID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// Publish queues event for delivery. It never blocks; when the queue is
// full the event is dropped.
func (h *Hub) Publish(event booking.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.WithFields(logrus.Fields{"type": event.Type, "tour_id": event.TourID}).Warn("Event queue full, dropping event")
	}
}

// ClientCount returns the number of clients watching a tour
func (h *Hub) ClientCount(tourID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tourID])
}
