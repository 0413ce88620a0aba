// Package websocket pushes analysis events to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"portfolioanalytics/internal/config"
	"portfolioanalytics/internal/shared/sanitize"
	"portfolioanalytics/pkg/contracts/events"
)

// Event types
const (
	TypeConnection        = events.TypeConnection
	TypeAnalysisCompleted = events.TypeAnalysisCompleted
	TypeAnalysisFailed    = events.TypeAnalysisFailed
	TypeCatalogUpdated    = events.TypeCatalogUpdated
)

const broadcastBuffer = 256

// Event is the JSON frame sent to clients
type Event = events.Message

// outbound is an encoded frame queued for broadcast
type outbound struct {
	eventType string
	frame     []byte
}

// Hub maintains the set of active clients and fans events out to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu       sync.RWMutex
	settings config.WebSocketConfig
	logger   *slog.Logger

	connections metric.Int64Counter
	messages    metric.Int64Counter
	dropped     metric.Int64Counter

	quit     chan struct{}
	running  bool
	stopOnce sync.Once
}

// NewHub creates a hub; Start must be called before clients register
func NewHub(settings config.WebSocketConfig, logger *slog.Logger) *Hub {
	if settings.PongWait <= 0 {
		settings.PongWait = config.WebSocketPongWait
	}
	if settings.PingPeriod <= 0 || settings.PingPeriod >= settings.PongWait {
		settings.PingPeriod = settings.PongWait * 9 / 10
	}

	meter := otel.Meter("portfolioanalytics.websocket")
	connections, _ := meter.Int64Counter("websocket_connections_total",
		metric.WithDescription("WebSocket connections accepted"))
	messages, _ := meter.Int64Counter("websocket_messages_total",
		metric.WithDescription("Events delivered to WebSocket clients"))
	dropped, _ := meter.Int64Counter("websocket_dropped_clients_total",
		metric.WithDescription("Clients disconnected because their buffer was full"))

	return &Hub{
		clients:     make(map[*Client]bool),
		broadcast:   make(chan outbound, broadcastBuffer),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		settings:    settings,
		logger:      logger.With(slog.String("component", "websocket.hub")),
		connections: connections,
		messages:    messages,
		dropped:     dropped,
		quit:        make(chan struct{}),
	}
}

// Start runs the hub loop in the background
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.Run()
}

// Stop ends the hub loop and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Run is the hub's main loop
func (h *Hub) Run() {
	ctx := context.Background()
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.InfoContext(ctx, "Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.connections.Add(ctx, 1)

			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if msg, err := encodeEvent(TypeConnection, events.ConnectionData{
				ClientID: client.id,
				Status:   "connected",
			}); err == nil {
				select {
				case client.send <- msg:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.InfoContext(ctx, "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.mu.Lock()
			delivered := 0
			for client := range h.clients {
				select {
				case client.send <- message.frame:
					delivered++
				default:
					close(client.send)
					delete(h.clients, client)
					h.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("type", message.eventType)))
					h.logger.WarnContext(ctx, "Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			h.mu.Unlock()
			h.messages.Add(ctx, int64(delivered),
				metric.WithAttributes(attribute.String("type", message.eventType)))
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeEvent(eventType string, payload any) ([]byte, error) {
	return json.Marshal(Event{
		Type:      eventType,
		Data:      sanitize.ToSerializable(payload),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Publish sends {type, data, timestamp} to every client. Non-finite numbers
// in payload are sent as null. Events published after Stop are dropped.
func (h *Hub) Publish(eventType string, payload any) error {
	msg, err := encodeEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	select {
	case <-h.quit:
		return nil
	case h.broadcast <- outbound{eventType: eventType, frame: msg}:
		return nil
	default:
		h.logger.Warn("broadcast queue full, dropping event", slog.String("type", eventType))
		return nil
	}
}
