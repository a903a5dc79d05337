package harness

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
)

// WebSocketHandler runs for each accepted WebSocket connection on a WebSocket route. The context
// ends when the client disconnects or the fixture server closes. The connection is closed after
// the handler returns.
type WebSocketHandler func(ctx context.Context, conn *websocket.Conn)

// WebSocket returns a route that accepts WebSocket upgrades from any origin. The upgrade request
// itself is recorded like any other request, so tests can inspect its headers.
func WebSocket(handler WebSocketHandler) Route {
	return Route{webSocket: handler}
}

// WebSocketEcho returns a WebSocket route that sends every message back unchanged.
func WebSocketEcho() Route {
	return WebSocket(func(ctx context.Context, conn *websocket.Conn) {
		for {
			messageType, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if err := conn.Write(ctx, messageType, data); err != nil {
				return
			}
		}
	})
}

// WebSocketGreeting returns a WebSocket route that sends one text message and then waits for
// the client to close.
func WebSocketGreeting(message string) Route {
	return WebSocket(func(ctx context.Context, conn *websocket.Conn) {
		if err := conn.Write(ctx, websocket.MessageText, []byte(message)); err != nil {
			return
		}
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})
}

func webSocketRouteHandler(handler WebSocketHandler, rc routeContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Pages on the alias host connect to the same server, so origins never match the Host.
			InsecureSkipVerify: true,
		})
		if err != nil {
			rc.logger.Printf("WebSocket upgrade failed for %s: %s", r.URL.Path, err)
			return
		}
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go func() {
			select {
			case <-rc.done:
				cancel()
			case <-ctx.Done():
			}
		}()

		handler(ctx, conn)

		if errors.Is(ctx.Err(), context.Canceled) {
			_ = conn.CloseNow()
			return
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	})
}
