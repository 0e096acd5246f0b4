package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/datachainlab/crossdomain-relayer/core"
	"github.com/datachainlab/crossdomain-relayer/log"
)

// APIServer exposes the read-only view over the message store: a liveness
// probe with the pending count and a full message dump. No state mutation.
type APIServer struct {
	store *core.MessageStore
	srv   *http.Server
}

func NewAPIServer(store *core.MessageStore) *APIServer {
	s := &APIServer{store: store}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/messages", s.handleMessages)
	s.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves the API on the given address until Shutdown.
func (s *APIServer) Start(listenAddress string) error {
	s.srv.Addr = listenAddress
	logger := log.GetLogger().WithModule("server")
	logger.Info("starting API server", "addr", listenAddress)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
