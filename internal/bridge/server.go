package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the sustained inbound command rate per connection.
	DefaultRate = rate.Limit(20)
	// DefaultBurst is the inbound command burst per connection.
	DefaultBurst = 40
	// connBuffer is the number of outbound events held per connection.
	connBuffer = 256
)

// Handler applies an inbound message.
type Handler interface {
	Dispatch(msg Message) error
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Network is "tcp" (default) or "unix".
	Network string
	// Address to listen on, e.g. "127.0.0.1:7878" or a socket path.
	Address  string
	Encoding Encoding
	Rate     rate.Limit
	Burst    int
	Logger   *slog.Logger
}

// Server is the host side of the bridge: peers connect, send commands and
// receive every timer event. It implements Host and is not ready while no
// peer is connected.
type Server struct {
	config  ServerConfig
	handler Handler
	logger  *slog.Logger

	listener net.Listener
	running  atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	connsMu sync.RWMutex
	conns   map[*serverConn]struct{}
}

type serverConn struct {
	id      string
	conn    net.Conn
	out     chan HostEvent
	limiter *rate.Limiter
	once    sync.Once
}

func (c *serverConn) close() {
	c.once.Do(func() {
		c.conn.Close()
	})
}

// NewServer returns a Server dispatching inbound messages to h.
func NewServer(config ServerConfig, h Handler) *Server {
	if config.Network == "" {
		config.Network = "tcp"
	}
	if config.Encoding == "" {
		config.Encoding = EncodingJSON
	}
	if config.Rate <= 0 {
		config.Rate = DefaultRate
	}
	if config.Burst <= 0 {
		config.Burst = DefaultBurst
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  config,
		handler: h,
		logger:  logger.With(slog.String("component", "bridge")),
		conns:   make(map[*serverConn]struct{}),
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen(s.config.Network, s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", s.config.Network, s.config.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.running.CompareAndSwap(false, true) {
		ln.Close()
		return errors.New("bridge server already running")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.listener = ln

	s.wg.Add(2)
	go s.acceptLoop(ctx)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		s.shutdown()
	}()

	s.logger.Info("bridge listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop closes the listener and every connection and waits for them.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Addr returns the listen address once serving.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of attached peers.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Send fans ev out to every peer. It returns ErrNotReady when no peer is
// attached. A peer that cannot keep up misses the event.
func (s *Server) Send(ev HostEvent) error {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	if len(s.conns) == 0 {
		return ErrNotReady
	}
	for c := range s.conns {
		select {
		case c.out <- ev:
		default:
			s.logger.Warn("peer too slow, event dropped",
				slog.String("conn_id", c.id),
				slog.String("timer_id", ev.ID),
			)
		}
	}
	return nil
}

func (s *Server) shutdown() {
	s.running.Store(false)
	s.listener.Close()

	s.connsMu.Lock()
	for c := range s.conns {
		c.close()
	}
	s.connsMu.Unlock()
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", slog.Any("error", err))
			continue
		}

		c := &serverConn{
			id:      uuid.NewString(),
			conn:    conn,
			out:     make(chan HostEvent, connBuffer),
			limiter: rate.NewLimiter(s.config.Rate, s.config.Burst),
		}
		s.connsMu.Lock()
		s.conns[c] = struct{}{}
		s.connsMu.Unlock()

		s.logger.Info("peer connected",
			slog.String("conn_id", c.id),
			slog.String("remote", conn.RemoteAddr().String()),
		)
		s.wg.Add(2)
		go s.readLoop(ctx, c)
		go s.writeLoop(c)
	}
}

func (s *Server) readLoop(ctx context.Context, c *serverConn) {
	defer s.wg.Done()
	defer s.detach(c)

	dec := NewDecoder(s.config.Encoding, c.conn)
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && s.running.Load() {
				s.logger.Warn("bad host message", slog.String("conn_id", c.id), slog.Any("error", err))
			}
			return
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.handler.Dispatch(msg); err != nil {
			s.logger.Debug("host command failed",
				slog.String("conn_id", c.id),
				slog.String("timer_id", msg.ID),
				slog.Any("error", err),
			)
		}
	}
}

func (s *Server) writeLoop(c *serverConn) {
	defer s.wg.Done()
	enc := NewEncoder(s.config.Encoding, c.conn)
	for ev := range c.out {
		if err := enc.Encode(ev); err != nil {
			c.close()
			// Drain so Send never blocks on a dead peer before detach.
			for range c.out {
			}
			return
		}
	}
}

func (s *Server) detach(c *serverConn) {
	s.connsMu.Lock()
	if _, ok := s.conns[c]; ok {
		delete(s.conns, c)
		close(c.out)
	}
	s.connsMu.Unlock()
	c.close()
	s.logger.Info("peer disconnected", slog.String("conn_id", c.id))
}
