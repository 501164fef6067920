package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jingkaihe/skillserver/pkg/logger"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
)

// HTTPServer serves MCP over server-sent events on a TCP address
type HTTPServer struct {
	listener net.Listener
	sse      *server.SSEServer
	router   *mux.Router
	server   *http.Server
}

// NewHTTPServer listens on addr and routes /sse and /message to the MCP
// server. /healthz answers liveness probes.
func NewHTTPServer(s *server.MCPServer, addr string) (*HTTPServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tcp listener")
	}

	h := &HTTPServer{
		listener: listener,
		router:   mux.NewRouter(),
	}
	h.server = &http.Server{
		Handler:           h.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	h.sse = server.NewSSEServer(s,
		server.WithBaseURL("http://"+listener.Addr().String()),
		server.WithHTTPServer(h.server),
	)

	h.router.Handle("/sse", h.sse.SSEHandler()).Methods(http.MethodGet)
	h.router.Handle("/message", h.sse.MessageHandler()).Methods(http.MethodPost)
	h.router.HandleFunc("/healthz", h.handleHealthz).Methods(http.MethodGet)

	return h, nil
}

func (h *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start serves until Shutdown is called
func (h *HTTPServer) Start(ctx context.Context) error {
	logger.G(ctx).WithField("addr", h.Addr()).Info("serving MCP over SSE")
	if err := h.server.Serve(h.listener); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "HTTP server failed")
	}
	return nil
}

// Shutdown closes open SSE sessions and stops the HTTP server
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	logger.G(ctx).Info("shutting down MCP HTTP server")
	if err := h.sse.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown HTTP server")
	}
	// Serve closes the listener itself; this covers a server that never started.
	_ = h.listener.Close()
	return nil
}

// Addr returns the address the server listens on
func (h *HTTPServer) Addr() string {
	return h.listener.Addr().String()
}
