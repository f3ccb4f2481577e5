package stream

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/websocket"
)

// WebSocketDialer connects to the backend's /ws endpoint.
type WebSocketDialer struct {
	// BaseURL is the ws:// or wss:// root of the backend.
	BaseURL string
	// Origin defaults to the http form of BaseURL.
	Origin string
}

func (d WebSocketDialer) URL(scope Scope) string {
	q := url.Values{}
	q.Set("restaurant_id", scope.RestaurantID)
	q.Set("role", string(scope.Role))
	return strings.TrimRight(d.BaseURL, "/") + "/ws?" + q.Encode()
}

func (d WebSocketDialer) origin() string {
	if d.Origin != "" {
		return d.Origin
	}
	base := strings.TrimRight(d.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "wss://"):
		return "https://" + strings.TrimPrefix(base, "wss://")
	case strings.HasPrefix(base, "ws://"):
		return "http://" + strings.TrimPrefix(base, "ws://")
	}
	return "http://localhost"
}

func (d WebSocketDialer) Dial(ctx context.Context, scope Scope) (Conn, error) {
	cfg, err := websocket.NewConfig(d.URL(scope), d.origin())
	if err != nil {
		return nil, err
	}
	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadFrame(ctx context.Context) (string, error) {
	var frame string
	if err := websocket.Message.Receive(c.ws, &frame); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return frame, nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
