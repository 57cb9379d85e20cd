// Package scopeweb streams scope frames to browsers over a websocket.
package scopeweb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/cbegin/polysynth-go/internal/logging"
	"github.com/cbegin/polysynth-go/internal/scope"
)

var ErrClosed = errors.New("scope server is closed")

const (
	writeWait   = time.Second
	clientQueue = 4 // frames; a client further behind than this misses frames
)

type client struct {
	send chan []byte
}

// Server serves a small viewer page at / and the frame stream at /ws.
type Server struct {
	log      *zap.Logger
	upgrader websocket.FastHTTPUpgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func New(log *zap.Logger) *Server {
	return &Server{
		log: logging.OrNop(log),
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*fasthttp.RequestCtx) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler routes requests; mount it on any fasthttp server.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/":
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBodyString(viewerPage)
	case "/ws":
		if err := s.upgrader.Upgrade(ctx, s.serveClient); err != nil {
			s.log.Debug("websocket upgrade failed", zap.Error(err))
		}
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) serveClient(conn *websocket.Conn) {
	c := &client{send: make(chan []byte, clientQueue)}
	if !s.add(c) {
		return
	}
	defer s.remove(c)
	s.log.Info("scope client connected", zap.Stringer("remote", conn.RemoteAddr()))

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debug("scope client write failed", zap.Error(err))
				return
			}
		case <-gone:
			s.log.Info("scope client disconnected", zap.Stringer("remote", conn.RemoteAddr()))
			return
		}
	}
}

func (s *Server) add(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// Len returns the number of connected clients.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast sends f to every client without blocking. Clients whose queue
// is full skip this frame.
func (s *Server) Broadcast(f scope.Frame) error {
	msg, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	return nil
}

// Pump extracts frames from src at fps and broadcasts them until ctx is
// done. Extraction is skipped while nobody is watching.
func (s *Server) Pump(ctx context.Context, src scope.Source, x *scope.Extractor, fps int) error {
	return scope.Run(ctx, src, x, fps, func(f scope.Frame) {
		if s.Len() == 0 {
			return
		}
		if err := s.Broadcast(f); err != nil && !errors.Is(err, ErrClosed) {
			s.log.Warn("scope broadcast failed", zap.Error(err))
		}
	})
}

// Close disconnects every client. Later broadcasts return ErrClosed.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
	return nil
}

// Serve handles connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &fasthttp.Server{
		Handler:     s.Handler,
		Name:        "polysynth-scope",
		IdleTimeout: time.Minute,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("scope server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		_ = s.Close()
		return err
	case <-ctx.Done():
	}
	_ = s.Close()
	if err := srv.Shutdown(); err != nil {
		return err
	}
	<-errCh
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("scope listen: %w", err)
	}
	return s.Serve(ctx, ln)
}
