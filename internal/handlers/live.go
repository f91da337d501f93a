package handlers

// live.go: GET /api/tournaments/:id/live upgrades to a WebSocket that streams the
// tournament's events (new rounds, recorded results) as JSON text frames.

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/chess-ratings/internal/service"
	hub "github.com/trentd187/chess-ratings/internal/websocket"
)

// pingInterval is how often an idle connection is pinged. Proxies tend to drop
// WebSockets that stay silent for about a minute.
const pingInterval = 30 * time.Second

// LiveUpgrade rejects plain HTTP requests and unknown tournaments before the upgrade.
func LiveUpgrade(tournaments *service.TournamentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// IsWebSocketUpgrade checks for the "Connection: Upgrade" and "Upgrade: websocket"
		// headers a browser sends when opening a WebSocket.
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		if err := tournaments.Exists(c.UserContext(), id); err != nil {
			return err
		}
		return c.Next() // hand over to Live
	}
}

// Live subscribes the connection to the hub until either side goes away.
func Live(h *hub.Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		// Register the connection with the hub; from now on every event for this
		// tournament lands on client.Send.
		client := hub.NewClient(conn.Params("id"))
		h.Register(client)
		defer h.Unregister(client)

		// Spectators never send anything meaningful; reading only notices the close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		// The write loop: this goroutine is the only writer on conn.
		for {
			select {
			case msg, open := <-client.Send:
				// The hub closes Send when it drops a slow client or shuts down.
				if !open {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	})
}
