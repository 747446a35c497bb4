// Package serv exposes JSON document tables over HTTP.
//
// The service is a thin boundary: request parameters are parsed into a
// query, compiled to SQL, and executed against the store. All query
// semantics live in internal/query, internal/shape and internal/sqlgen.
package serv

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tabkit/tabq/internal/store"
)

// Service is the HTTP front end over a store.
type Service struct {
	conf  Config
	log   *zap.Logger
	store *store.Store
	srv   *http.Server
}

// NewService wires a service from its parts. The caller owns the store
// until Run is called; Run closes it on shutdown.
func NewService(conf Config, log *zap.Logger, st *store.Store) *Service {
	return &Service{conf: conf, log: log, store: st}
}

// Handler builds the service's routes. Exposed separately from Run so
// tests can drive the mux with httptest.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logRequests(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/v1/tables", func(r chi.Router) {
		if s.conf.Auth.Secret != "" {
			r.Use(bearerAuth(s.conf.Auth))
		}
		r.Get("/", s.handleListTables)
		r.Get("/{table}", s.handleSelect)
		r.Put("/{table}", s.handleInsert)
		r.Patch("/{table}", s.handleUpdate)
		r.Delete("/{table}", s.handleDelete)
	})

	return r
}

// Run starts the HTTP server and blocks until interrupted. The store
// is closed once the server has drained.
func (s *Service) Run() error {
	s.srv = &http.Server{
		Addr:              s.conf.Listen,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		if err := s.srv.Shutdown(context.Background()); err != nil {
			s.log.Warn("shutdown error", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	s.srv.RegisterOnShutdown(func() {
		if err := s.store.Close(); err != nil {
			s.log.Warn("store close error", zap.Error(err))
		}
		s.log.Info("shutdown complete")
	})

	l, err := net.Listen("tcp", s.conf.Listen)
	if err != nil {
		return err
	}

	s.log.Info("listening",
		zap.String("addr", s.conf.Listen),
		zap.String("db", s.conf.DBPath),
		zap.Bool("auth", s.conf.Auth.Secret != ""),
	)

	if err := s.srv.Serve(l); err != http.ErrServerClosed {
		return err
	}
	<-idleConnsClosed
	return nil
}
