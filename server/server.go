// Package server exposes the reader bridge to clients: a WebSocket method
// channel for commands, a WebSocket status channel for line snapshots, and
// plain HTTP endpoints for health and one-shot commands.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"

	"github.com/dotside-studios/davi-uhf-agent/bridge"
	"github.com/dotside-studios/davi-uhf-agent/buildinfo"
	"github.com/dotside-studios/davi-uhf-agent/protocol"
)

// Config holds the server configuration
type Config struct {
	Dispatcher *bridge.Dispatcher
	Status     *bridge.Broadcaster
	Host       string
	Port       int
	APISecret  string // Optional secret required on every client route
	Mode       string // Reader mode reported by health and mDNS
	MDNS       bool
	// TLS, when set, serves https/wss instead of http/ws.
	TLS *tls.Config
	// CACert returns the local CA in PEM form for download. Optional.
	CACert func() ([]byte, error)
	Logger *log.Logger
}

// Server manages the HTTP and WebSocket server
type Server struct {
	config     Config
	logger     *log.Logger
	router     chi.Router
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
	mdnsServer *zeroconf.Server

	ctx    context.Context
	cancel context.CancelFunc

	// Open WebSocket connections, closed on Stop since Shutdown does not
	// track hijacked connections.
	conns   map[*websocket.Conn]string
	connsMu sync.Mutex
}

// New creates a new server instance
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[server] ", log.LstdFlags)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: config,
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*websocket.Conn]string),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("UHF Agent Server Running"))
	})
	r.Get(protocol.PathHealth, s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSecret)
		r.Get(protocol.PathMethodChannel, s.handleMethodChannel)
		r.Get(protocol.PathStatusChannel, s.handleStatusChannel)
		r.Post(protocol.PathCommand, s.handleCommand)
		if s.config.CACert != nil {
			r.Get("/api/v1/ca.pem", s.handleCACert)
		}
	})
	return r
}

// Handler returns the server's routes, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background. It returns once
// the port is bound, so a port conflict is reported to the caller.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	scheme := "ws"
	if s.config.TLS != nil {
		ln = tls.NewListener(ln, s.config.TLS)
		scheme = "wss"
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.router}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("HTTP server error: %v", err)
		}
	}()
	s.logger.Printf("Listening on %s://%s%s", scheme, ln.Addr(), protocol.PathMethodChannel)

	if s.config.MDNS {
		if err := s.startMDNS(); err != nil {
			s.logger.Printf("Warning: mDNS registration failed: %v", err)
			s.logger.Printf("Auto-discovery will not be available, but server will continue normally")
		}
	}
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down and closes every WebSocket connection.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
		s.mdnsServer = nil
		s.logger.Println("mDNS service stopped")
	}

	s.connsMu.Lock()
	for conn, id := range s.conns {
		conn.Close()
		delete(s.conns, conn)
		s.logger.Printf("Closed connection %s", id)
	}
	s.connsMu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.httpServer = nil
	return err
}

func (s *Server) startMDNS() error {
	port := s.config.Port
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	server, err := zeroconf.Register(MDNSServiceName, MDNSServiceType, MDNSDomain, port, s.txtRecords(), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	s.mdnsServer = server
	s.logger.Printf("mDNS service registered: %s (%s) on port %d", MDNSServiceName, MDNSServiceType, port)
	return nil
}

func (s *Server) txtRecords() []string {
	records := []string{
		"version=" + buildinfo.Version,
		"protocol=websocket",
		"path=" + protocol.PathMethodChannel,
		"status_path=" + protocol.PathStatusChannel,
		"mode=" + s.config.Mode,
	}
	if s.config.TLS != nil {
		records = append(records, "tls=1")
	}
	return records
}

func (s *Server) track(conn *websocket.Conn, id string) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = id
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}
