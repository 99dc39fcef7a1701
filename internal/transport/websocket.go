// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "verb/internal/log"
	"verb/internal/params"
)

const (
	broadcastQueue = 64
	writeTimeout   = time.Second
)

var (
	ErrServerClosed = errors.New("control server closed")
	ErrBadIndex     = errors.New("unknown parameter index")
	ErrBadValue     = errors.New("parameter value must be finite")
)

// client serialises writes to one connection; the broadcast loop and the
// connection's own handler both write.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// Server is the websocket control surface for a parameter store.
//
//	GET /ws      websocket; receives Update, sends SetMessage
//	GET /params  the current table as JSON
type Server struct {
	store    *params.Store
	addr     string
	upgrader websocket.Upgrader

	clients   map[*client]struct{}
	clientsMu sync.Mutex

	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	server   *http.Server
	listener net.Listener
}

// NewServer creates a server for store and starts its broadcast loop. Call
// Start to listen on addr, or mount Handler on an existing server.
func NewServer(store *params.Store, addr string) *Server {
	s := &Server{
		store: store,
		addr:  addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local control surfaces are served from anywhere.
			},
		},
		clients:   make(map[*client]struct{}),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.handleBroadcasts()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/params", s.handleParams)
	return mux
}

// Start binds addr and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		applog.Infof("Control: serving ws://%s/ws", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("Control: server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.store.Snapshot()); err != nil {
		applog.Warnf("Control: failed to write params: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Control: upgrade error: %v", err)
		return
	}

	c := &client{conn: conn}
	if !s.register(c) {
		conn.Close()
		return
	}
	defer s.unregister(c)

	if err := c.writeJSON(Update{Params: s.store.Snapshot()}); err != nil {
		applog.Warnf("Control: failed to send snapshot: %v", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				applog.Debugf("Control: read error: %v", err)
			}
			return
		}
		if err := s.apply(data); err != nil {
			if err := c.writeJSON(Update{Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		s.Send(s.store.Snapshot())
	}
}

// apply decodes and applies one SetMessage.
func (s *Server) apply(data []byte) error {
	var msg SetMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if msg.Index == nil || *msg.Index < 0 || *msg.Index >= s.store.Count() {
		return ErrBadIndex
	}
	if msg.Value == nil {
		return ErrBadValue
	}
	v := float64(*msg.Value)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrBadValue
	}
	s.store.Set(*msg.Index, *msg.Value)
	applog.Debugf("Control: %s = %.3f", s.store.Name(*msg.Index), *msg.Value)
	return nil
}

func (s *Server) register(c *client) bool {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	select {
	case <-s.done:
		return false
	default:
	}
	s.clients[c] = struct{}{}
	applog.Debugf("Control: client connected, total: %d", len(s.clients))
	return true
}

func (s *Server) unregister(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.conn.Close()
		applog.Debugf("Control: client disconnected, total: %d", len(s.clients))
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// handleBroadcasts sends queued updates to every client.
func (s *Server) handleBroadcasts() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case data := <-s.broadcast:
			update := Update{Params: data}
			s.clientsMu.Lock()
			targets := make([]*client, 0, len(s.clients))
			for c := range s.clients {
				targets = append(targets, c)
			}
			s.clientsMu.Unlock()

			for _, c := range targets {
				if err := c.writeJSON(update); err != nil {
					applog.Warnf("Control: error sending to client: %v", err)
					s.unregister(c)
				}
			}
		}
	}
}

// Send queues a parameter table for every client. A full queue drops the
// update; the next one carries the whole table anyway.
func (s *Server) Send(data any) error {
	select {
	case <-s.done:
		return ErrServerClosed
	default:
	}
	select {
	case s.broadcast <- data:
	default:
		applog.Debug("Control: broadcast queue full, dropping update")
	}
	return nil
}

// Close disconnects every client and stops the server.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		applog.Debug("Control: closing server")
		s.clientsMu.Lock()
		close(s.done)
		for c := range s.clients {
			c.conn.Close()
		}
		clear(s.clients)
		s.clientsMu.Unlock()

		s.wg.Wait()
		if s.server != nil {
			err = s.server.Close()
		}
	})
	return err
}

var _ Transport = (*Server)(nil)
