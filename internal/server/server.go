package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-core/internal/game"
	"github.com/lox/holdem-core/internal/logging"
	"github.com/lox/holdem-core/internal/statesync"
)

// Frame is the envelope for every message the server pushes. Sync
// responses reuse the statesync wire format; events ride alongside.
type Frame struct {
	Type    string                   `json:"type"` // "event", "delta", "snapshot", "error", "ack"
	TableID string                   `json:"tableId,omitempty"`
	Event   *game.Event              `json:"event,omitempty"`
	Sync    *statesync.Message       `json:"sync,omitempty"`
	Actions []statesync.ActionRecord `json:"actions,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// Request is a client-to-server message
type Request struct {
	Type     string `json:"type"` // "join", "leave", "action", "sync", "recover"
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	BuyIn    int    `json:"buyIn"`
	Kind     string `json:"kind"`
	Amount   int    `json:"amount"`
	Version  uint64 `json:"version"`
	Hash     string `json:"hash"`
}

const writeQueueSize = 64

// Server is the WebSocket ingress: it upgrades connections, routes
// requests to the table service, and fans table events out to the
// connections subscribed to each table.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	logger   *log.Logger
	audit    *logging.Logger
	service  *Service
	metrics  bool

	mu    sync.Mutex
	conns map[*connection]bool
}

// NewServer creates the ingress server and wires the service's event
// broadcast to it
func NewServer(addr string, service *Service, metrics bool, logger *log.Logger) *Server {
	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger.WithPrefix("server"),
		audit:   logging.NewLogger(logger.WithPrefix("ingress")),
		service: service,
		metrics: metrics,
		conns:   make(map[*connection]bool),
	}
	service.SetBroadcast(s.Broadcast)
	return s
}

// Run serves until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	if s.metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	httpServer := &http.Server{Addr: s.addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.addr)
		err := httpServer.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		s.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Broadcast pushes a table event to every connection subscribed to the
// table. Slow consumers are dropped rather than blocking the table.
func (s *Server) Broadcast(tableID string, event game.Event) {
	frame := Frame{Type: "event", TableID: tableID, Event: &event}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if !conn.subscribed(tableID) {
			continue
		}
		select {
		case conn.send <- frame:
		default:
			s.logger.Warn("dropping slow consumer", "player", conn.playerID)
			conn.close()
			delete(s.conns, conn)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "err", err)
		return
	}

	conn := &connection{
		ws:     ws,
		send:   make(chan Frame, writeQueueSize),
		tables: make(map[string]bool),
	}
	s.mu.Lock()
	s.conns[conn] = true
	total := len(s.conns)
	s.mu.Unlock()
	s.logger.Info("client connected", "total", total)

	go conn.writePump()
	s.readPump(conn)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"tables":   s.service.TableIDs(),
		"breakers": s.service.BreakerStates(),
	})
}

func (s *Server) readPump(conn *connection) {
	defer s.drop(conn)

	for {
		var req Request
		if err := conn.ws.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("read failed", "player", conn.playerID, "err", err)
			}
			return
		}
		s.handleRequest(conn, req)
	}
}

func (s *Server) handleRequest(conn *connection, req Request) {
	ctx := context.Background()

	// Client-supplied context goes through the redacting logger
	s.audit.Debug("request", "type", req.Type, "table", req.TableID, "player", req.PlayerID)

	switch req.Type {
	case "join":
		if err := s.service.JoinTable(ctx, req.TableID, req.PlayerID, req.Seat, req.BuyIn); err != nil {
			conn.reply(Frame{Type: "error", TableID: req.TableID, Error: userMessage(err)})
			return
		}
		conn.playerID = req.PlayerID
		conn.subscribe(req.TableID)
		conn.reply(Frame{Type: "ack", TableID: req.TableID})

	case "leave":
		if err := s.service.LeaveTable(ctx, req.TableID, req.PlayerID); err != nil {
			conn.reply(Frame{Type: "error", TableID: req.TableID, Error: userMessage(err)})
			return
		}
		conn.unsubscribe(req.TableID)
		conn.reply(Frame{Type: "ack", TableID: req.TableID})

	case "action":
		if err := s.service.ApplyAction(ctx, req.TableID, req.PlayerID, req.Kind, req.Amount); err != nil {
			conn.reply(Frame{Type: "error", TableID: req.TableID, Error: userMessage(err)})
		}

	case "sync":
		msg, err := s.service.Sync(req.TableID, req.Version)
		if err != nil {
			conn.reply(Frame{Type: "error", TableID: req.TableID, Error: userMessage(err)})
			return
		}
		conn.reply(Frame{Type: msg.Type, TableID: req.TableID, Sync: msg})

	case "recover":
		delta, actions, err := s.service.Recover(req.TableID, req.Version, req.Hash)
		if err != nil {
			conn.reply(Frame{Type: "error", TableID: req.TableID, Error: userMessage(err)})
			return
		}
		msg := &statesync.Message{
			Type:        "delta",
			FromVersion: delta.FromVersion,
			ToVersion:   delta.ToVersion,
			Changes:     delta.Changes,
		}
		conn.reply(Frame{Type: "delta", TableID: req.TableID, Sync: msg, Actions: actions})

	default:
		conn.reply(Frame{Type: "error", Error: fmt.Sprintf("unknown request type %q", req.Type)})
	}
}

func (s *Server) drop(conn *connection) {
	s.mu.Lock()
	if s.conns[conn] {
		delete(s.conns, conn)
		conn.close()
	}
	total := len(s.conns)
	s.mu.Unlock()
	s.logger.Info("client disconnected", "total", total)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.close()
	}
	s.conns = make(map[*connection]bool)
}

// connection is one WebSocket client with a buffered write queue
type connection struct {
	ws       *websocket.Conn
	playerID string
	send     chan Frame

	mu     sync.Mutex
	tables map[string]bool
	closed bool
}

func (c *connection) subscribe(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[tableID] = true
}

func (c *connection) unsubscribe(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, tableID)
}

func (c *connection) subscribed(tableID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables[tableID]
}

// reply queues a frame for this connection. The closed check runs
// under the same lock close takes, so a concurrent drop can never
// leave us sending on a closed channel.
func (c *connection) reply(frame Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *connection) writePump() {
	for frame := range c.send {
		if err := c.ws.WriteJSON(frame); err != nil {
			return
		}
	}
}

func (c *connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
}

// userMessage scrubs internal detail from errors before they reach a
// client. Game errors explain themselves; infrastructure failures get
// the generic unavailable message.
func userMessage(err error) string {
	var buyIn *game.BuyInError
	var action *game.IllegalActionError
	if errors.As(err, &buyIn) || errors.As(err, &action) {
		return err.Error()
	}
	for _, sentinel := range []error{
		game.ErrNotYourTurn, game.ErrInsufficientFunds, game.ErrHandInProgress,
		statesync.ErrInvalidClientState, statesync.ErrVersionMismatch,
	} {
		if errors.Is(err, sentinel) {
			return err.Error()
		}
	}
	return "service temporarily unavailable"
}
