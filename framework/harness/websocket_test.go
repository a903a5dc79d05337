package harness

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webSocketURL(s *FixtureServer, path string) string {
	return "ws" + strings.TrimPrefix(s.URL(), "http") + path
}

func dialWebSocket(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"User-Agent": []string{"fixture-test-agent"}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func TestWebSocketEcho(t *testing.T) {
	s := startServer(t, RouteTable{"/ws": WebSocketEcho()})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	conn := dialWebSocket(t, ctx, webSocketURL(s, "/ws"))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("hello")))
	messageType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, messageType)
	assert.Equal(t, "hello", string(data))

	upgrade := s.RequireRequestTo(t, "/ws", time.Second)
	assert.True(t, upgrade.Matched)
	assert.Equal(t, "fixture-test-agent", upgrade.Headers.Get("User-Agent"))
	assert.Equal(t, "websocket", strings.ToLower(upgrade.Headers.Get("Upgrade")))

	assert.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestWebSocketGreeting(t *testing.T) {
	s := startServer(t, RouteTable{"/ws": WebSocketGreeting("welcome")})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	conn := dialWebSocket(t, ctx, webSocketURL(s, "/ws"))
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "welcome", string(data))
}

func TestWebSocketIsDisconnectedWhenServerCloses(t *testing.T) {
	s, err := StartFixtureServer(RouteTable{"/ws": WebSocketGreeting("welcome")}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	conn := dialWebSocket(t, ctx, webSocketURL(s, "/ws"))
	_, _, err = conn.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	_, _, err = conn.Read(ctx)
	assert.Error(t, err)
	assert.NoError(t, ctx.Err(), "read should fail because of the disconnect, not the test timeout")
}

func TestWebSocketRouteRejectsPlainRequest(t *testing.T) {
	s := startServer(t, RouteTable{"/ws": WebSocketEcho()})
	resp, _ := getResponse(t, nil, s.URL()+"/ws")
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}
