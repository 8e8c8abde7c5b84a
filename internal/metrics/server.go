package metrics

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Server exposes a registry over HTTP until its context is canceled.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and mounts the registry at path. The server starts
// serving on Serve.
func Listen(addr, path string, reg *prom.Registry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "bind metrics listener").
			WithContext("address", addr).
			Build()
	}
	mux := http.NewServeMux()
	mux.Handle(path, HTTPHandler(reg))
	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve blocks until ctx is done, then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(s.ln) }()
	slog.Info("Serving metrics", slog.String("address", s.Addr()))

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapError(err, errors.CategoryNetwork, "metrics server stopped").Build()
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
