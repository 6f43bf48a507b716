package hostops

import (
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server is a host-managed HTTP listener that dispatches requests into a
// script-provided handler (spec.md §6.4: "enables ALPN h2,http/1.1 over
// TLS, else h2c if configured" when no TLS config is supplied). Each
// Server owns one net.Listener; RequestID stamps entries in the request
// table the way the teacher's quickjs worker keys per-request state by
// reqID, but with a google/uuid string instead of a sequential counter so
// ids stay unique across server restarts.
type Server struct {
	ln net.Listener
	hs *http.Server
}

// RequestID mints a stable id for one in-flight request/response table
// entry (spec.md DOMAIN STACK: "HTTP request/response table entries").
func RequestID() string { return uuid.NewString() }

// Listen starts a plaintext listener serving handler over h2c (HTTP/2
// without TLS) when useH2C is true, falling back to HTTP/1.1 otherwise —
// the non-TLS half of spec.md §6.4's negotiation. TLS/ALPN h2 negotiation
// is the embedder's responsibility (it owns the certificate), so Listen
// only ever serves h2c or plain HTTP/1.1.
func Listen(addr string, handler http.Handler, useH2C bool) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("hostops: listen %q: %w", addr, err)
	}
	h2s := &http2.Server{}
	hs := &http.Server{Handler: handler}
	if useH2C {
		hs.Handler = h2c.NewHandler(handler, h2s)
	}
	srv := &Server{ln: ln, hs: hs}
	go func() {
		_ = hs.Serve(ln)
	}()
	return srv, nil
}

// Addr reports the bound address, useful once Listen was called with
// addr ":0" to pick an ephemeral port.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close shuts the listener down, dropping in-flight connections — callers
// that want a graceful drain should use (*http.Server).Shutdown against
// the *Server's own lifecycle instead; Close matches the teacher's
// fail-fast pool-teardown style (engine.go's pool shutdown).
func (s *Server) Close() error {
	if err := s.hs.Close(); err != nil {
		return fmt.Errorf("hostops: closing http server: %w", err)
	}
	return nil
}
