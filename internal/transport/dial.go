package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// Dial connects to a Server at rawURL (ws:// or wss://, http/https are
// rewritten) and returns the client side of the frame connection.
func Dial(ctx context.Context, rawURL, token string, opts Options) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = ConnectPath
	}

	header := http.Header{}
	if token != "" {
		header.Set("X-Token", token)
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial %s: %w (status %d)", u, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("transport: dial %s: %w", u, err)
	}
	return newConn(ws, RoleClient, opts), nil
}
