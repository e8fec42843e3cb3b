// Package server wires the storage, catalog, playlist and ingestion services
// into one HTTP server: GraphQL for queries and mutations, plain HTTP for
// uploads, media streaming and playlist export.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"pitunes/internal/catalog"
	"pitunes/internal/config"
	"pitunes/internal/export"
	"pitunes/internal/graphql"
	"pitunes/internal/ingest"
	"pitunes/internal/playlist"
	"pitunes/internal/store"
	"pitunes/pkg/models"
)

// Server owns the HTTP surface and the background media watcher.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	catalog  *catalog.Catalog
	engine   *playlist.Engine
	ingester *ingest.Ingester
	renderer *export.Renderer
	gql      *graphql.Handler
	logger   *logrus.Logger

	httpServer *http.Server
	watcher    *mediaWatcher
}

// New builds a fully wired server. The store must already be open and
// migrated.
func New(cfg *config.Config, s *store.Store) (*Server, error) {
	logger := logrus.New()
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	c := catalog.New(s)
	engine := playlist.New(s)
	ingester := ingest.New(s, cfg.Library.TracksDir)

	schema, err := graphql.NewSchema(graphql.Config{
		Catalog:     c,
		Engine:      engine,
		RemoveMedia: ingester.RemoveMedia,
	})
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:      cfg,
		store:    s,
		catalog:  c,
		engine:   engine,
		ingester: ingester,
		renderer: export.NewRenderer(c),
		gql:      graphql.NewHandler(schema, c),
		logger:   logger,
	}
	return srv, nil
}

// Routes builds the handler tree with middleware applied.
func (srv *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/graphql", srv.gql)
	mux.HandleFunc("/tracks", srv.handleUpload)
	mux.HandleFunc("/tracks/", srv.handleStreamTrack)
	mux.HandleFunc("/playlists/", srv.handleExportPlaylist)
	mux.HandleFunc("/health", srv.handleHealthCheck)

	var handler http.Handler = mux
	handler = srv.basicAuthMiddleware(handler)
	handler = srv.corsMiddleware(handler)
	handler = srv.requestLoggingMiddleware(handler)
	handler = srv.panicRecoveryMiddleware(handler)
	return handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context) error {
	if srv.cfg.Library.WatchForChanges {
		watcher, err := newMediaWatcher(srv.store, srv.ingester, srv.logger)
		if err != nil {
			srv.logger.WithError(err).Warn("Could not start media watcher")
		} else {
			srv.watcher = watcher
			go srv.watcher.run(ctx)
		}
	}

	srv.httpServer = &http.Server{
		Addr:        srv.cfg.GetAddress(),
		Handler:     srv.Routes(),
		ReadTimeout: time.Duration(srv.cfg.Server.ReadTimeout) * time.Second,
	}

	srv.logger.WithFields(logrus.Fields{
		"address":    srv.cfg.GetAddress(),
		"tracks_dir": srv.cfg.Library.TracksDir,
	}).Info("piTunes server starting")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	srv.logger.Info("Server shutdown complete")
	return nil
}

// httpStatus maps domain error kinds onto HTTP status codes for the
// non-GraphQL routes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBadID), errors.Is(err, models.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrIngestRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (srv *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		srv.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}
	http.Error(w, err.Error(), status)
}
