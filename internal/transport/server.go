package transport

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// ConnectPath is the websocket endpoint a Server serves connections on.
const ConnectPath = "/connect"

// Server upgrades incoming websocket connections into frame connections and
// hands them to the handler, one goroutine per connection.
type Server struct {
	opts    Options
	token   string
	handler func(*Conn)

	upgrader websocket.Upgrader
}

// NewServer builds a Server. token, when non-empty, must match the
// X-Token header of connecting peers.
func NewServer(opts Options, token string, handler func(*Conn)) *Server {
	return &Server{
		opts:    opts.withDefaults(),
		token:   token,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != ConnectPath {
		http.NotFound(w, r)
		return
	}
	if s.token != "" && r.Header.Get("X-Token") != s.token {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newConn(ws, RoleServer, s.opts)
	go s.handler(c)
}
