// Package webwindow serves viewer clients over websockets. Every inbound
// message, from any connection, is handled by a single worker goroutine,
// so the handler never runs concurrently with itself.
package webwindow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// ErrNoConnection is returned when sending to an unknown connection.
var ErrNoConnection = errors.New("webwindow: no such connection")

// ErrClosed is returned by operations on a closed window.
var ErrClosed = errors.New("webwindow: closed")

// DefaultQueueSize is the capacity of the inbound message queue.
const DefaultQueueSize = 64

// Handler processes one text message from a connection.
type Handler interface {
	Handle(connID, msg string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(connID, msg string) error

// Handle calls f(connID, msg).
func (f HandlerFunc) Handle(connID, msg string) error { return f(connID, msg) }

// Option configures a Window.
type Option func(*Window)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Window) { w.log = l }
}

// WithMaxConnections limits concurrent connections; zero means no limit.
func WithMaxConnections(n int) Option {
	return func(w *Window) { w.maxConns = n }
}

// WithAssets serves fsys at "/" next to the websocket endpoint.
func WithAssets(fsys fs.FS) Option {
	return func(w *Window) { w.assets = fsys }
}

// WithQueueSize sets the inbound queue capacity.
func WithQueueSize(n int) Option {
	return func(w *Window) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

type conn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex // serializes writes
}

func (c *conn) write(typ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(typ, data)
}

type inbound struct {
	connID string
	msg    string
}

// Window is a websocket endpoint with a set of client connections.
type Window struct {
	log       *slog.Logger
	e         *echo.Echo
	upgrader  websocket.Upgrader
	assets    fs.FS
	maxConns  int
	queueSize int

	mu      sync.Mutex
	handler Handler
	conns   map[string]*conn
	order   []string

	inbox     chan inbound
	done      chan struct{}
	closeOnce sync.Once
	worker    sync.WaitGroup
}

// New creates a window and starts its worker.
func New(opts ...Option) *Window {
	w := &Window{
		log:       slog.Default(),
		queueSize: DefaultQueueSize,
		conns:     make(map[string]*conn),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.inbox = make(chan inbound, w.queueSize)

	w.e = echo.New()
	w.e.HideBanner = true
	w.e.HidePort = true
	w.e.GET("/ws", w.serveWS)
	if w.assets != nil {
		w.e.StaticFS("/", w.assets)
	}

	w.worker.Add(1)
	go w.work()
	return w
}

// SetHandler sets the handler for inbound messages.
func (w *Window) SetHandler(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = h
}

// HTTPHandler returns the HTTP handler serving the window.
func (w *Window) HTTPHandler() http.Handler { return w.e }

// ListenAndServe serves the window on addr until Shutdown.
func (w *Window) ListenAndServe(addr string) error {
	w.log.Info("listening", "addr", addr)
	if err := w.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webwindow: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and closes the window.
func (w *Window) Shutdown(ctx context.Context) error {
	err := w.e.Shutdown(ctx)
	w.Close()
	return err
}

// Close drops every connection and stops the worker. Queued messages are
// discarded.
func (w *Window) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for _, c := range w.conns {
			c.ws.Close()
		}
		w.conns = make(map[string]*conn)
		w.order = nil
		w.mu.Unlock()
		w.worker.Wait()
	})
}

// NumConnections returns the number of open connections.
func (w *Window) NumConnections() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conns)
}

// ConnectionIDs returns the open connection ids in connection order.
func (w *Window) ConnectionIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.order)
}

// Send writes a text message to one connection.
func (w *Window) Send(connID, text string) error {
	return w.write(connID, websocket.TextMessage, []byte(text))
}

// SendBinary writes a binary message to one connection.
func (w *Window) SendBinary(connID string, data []byte) error {
	return w.write(connID, websocket.BinaryMessage, data)
}

func (w *Window) write(connID string, typ int, data []byte) error {
	w.mu.Lock()
	c := w.conns[connID]
	w.mu.Unlock()
	if c == nil {
		return fmt.Errorf("%w %q", ErrNoConnection, connID)
	}
	if err := c.write(typ, data); err != nil {
		return fmt.Errorf("webwindow: write to %s: %w", connID, err)
	}
	return nil
}

// Broadcast queues msg as if every open connection had sent it.
func (w *Window) Broadcast(msg string) error {
	for _, id := range w.ConnectionIDs() {
		if err := w.enqueue(inbound{connID: id, msg: msg}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Window) enqueue(m inbound) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.inbox <- m:
		return nil
	case <-w.done:
		return ErrClosed
	}
}

func (w *Window) work() {
	defer w.worker.Done()
	for {
		select {
		case <-w.done:
			return
		case m := <-w.inbox:
			w.mu.Lock()
			h := w.handler
			w.mu.Unlock()
			if h == nil {
				w.log.Warn("no handler, dropping message", "conn", m.connID)
				continue
			}
			if err := h.Handle(m.connID, m.msg); err != nil {
				w.log.Warn("handler failed", "conn", m.connID, "err", err)
			}
		}
	}
}

func (w *Window) serveWS(c echo.Context) error {
	w.mu.Lock()
	full := w.maxConns > 0 && len(w.conns) >= w.maxConns
	w.mu.Unlock()
	if full {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "too many connections")
	}

	ws, err := w.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied.
		w.log.Warn("websocket upgrade failed", "err", err)
		return nil
	}

	cn := &conn{id: uuid.NewString(), ws: ws}
	if !w.add(cn) {
		ws.Close()
		return nil
	}
	w.log.Info("connection opened", "conn", cn.id)

	defer func() {
		w.remove(cn.id)
		ws.Close()
		w.log.Info("connection closed", "conn", cn.id)
	}()

	for {
		typ, msg, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.log.Debug("read failed", "conn", cn.id, "err", err)
			}
			return nil
		}
		if typ != websocket.TextMessage {
			continue
		}
		if err := w.enqueue(inbound{connID: cn.id, msg: string(msg)}); err != nil {
			return nil
		}
	}
}

// add registers c unless the window is closed or full.
func (w *Window) add(c *conn) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return false
	default:
	}
	if w.maxConns > 0 && len(w.conns) >= w.maxConns {
		return false
	}
	w.conns[c.id] = c
	w.order = append(w.order, c.id)
	return true
}

func (w *Window) remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.conns, id)
	w.order = slices.DeleteFunc(w.order, func(s string) bool { return s == id })
}
