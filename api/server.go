package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alan791205/ohara/config"
)

type Server struct {
	http *http.Server
}

func NewServer(cfg config.ServerConfig, svc Services) *Server {
	return &Server{
		http: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Port),
			Handler: NewRouter(svc, cfg),
		},
	}
}

// ListenAndServe blocks until the server fails or is shut down.
func (s *Server) ListenAndServe() error {
	slog.Info("api server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
