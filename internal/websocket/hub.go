// Package websocket implements a Hub that fans tournament events out to WebSocket
// subscribers. Spectators following a tournament see new pairings and results the
// moment they are stored, without polling the API.
package websocket

import (
	"encoding/json"
	"sync"
)

// Event is the JSON payload pushed to subscribers.
type Event struct {
	Type         string `json:"type"` // "round.generated" or "result.recorded"
	TournamentID string `json:"tournament_id"`
	Data         any    `json:"data,omitempty"`
}

// Client is one connected subscriber following a single tournament.
type Client struct {
	TournamentID string      // which tournament's events this client receives
	Send         chan []byte // outgoing messages; the connection's writer drains it
}

// NewClient returns a Client with a buffered Send channel.
func NewClient(tournamentID string) *Client {
	return &Client{TournamentID: tournamentID, Send: make(chan []byte, 32)}
}

type message struct {
	tournamentID string
	data         []byte
}

// Hub tracks subscribers grouped by tournament ID. All map writes happen on the Run
// goroutine; the mutex lets Subscribers read the map from other goroutines.
type Hub struct {
	clients map[string]map[*Client]bool

	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a Hub. broadcast is buffered so publishers don't block while the
// Run loop is busy.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the Hub's event loop. Start it with "go hub.Run()"; it returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.TournamentID] == nil {
				h.clients[client.TournamentID] = make(map[*Client]bool)
			}
			h.clients[client.TournamentID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.tournamentID] {
				select {
				case client.Send <- msg.data:
				default:
					// Slow consumer: its buffer is full, so drop it instead of stalling everyone.
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove deletes client and closes its Send channel. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.TournamentID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.TournamentID)
	}
}

// Publish encodes event and queues it for every subscriber of its tournament.
// It satisfies service.Notifier.
func (h *Hub) Publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message{tournamentID: event.TournamentID, data: data}:
	case <-h.done:
	}
	return nil
}

// Register starts delivering events for client.TournamentID to client.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister stops delivery and closes client.Send. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers returns how many clients follow tournamentID.
func (h *Hub) Subscribers(tournamentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tournamentID])
}

// Stop ends Run and closes every client's Send channel.
func (h *Hub) Stop() {
	close(h.done)
}
