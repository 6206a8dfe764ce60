// Package dashboard serves the browser governance dashboard and its JSON API.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"govdash/internal/governance"
	"govdash/internal/horizon"
	"govdash/internal/journal"
	"govdash/internal/monitor"
)

// Options carries the network details the dashboard shows and queries with.
type Options struct {
	AllowedOrigins []string
	HorizonURL     string
	Headers        map[string]string
	Passphrase     string
}

// Server owns per-session flows and the shared lookup cache.
type Server struct {
	opts     Options
	deps     governance.Deps
	sessions *sessions
	cache    *horizon.Cache
	history  *journal.Ledger
	monitor  *monitor.Monitor
	hub      *hub
	origins  origins
	log      zerolog.Logger
}

// NewServer wires the dashboard. history and mon may be nil.
func NewServer(deps governance.Deps, cache *horizon.Cache, history *journal.Ledger, mon *monitor.Monitor, opts Options, log zerolog.Logger) *Server {
	s := &Server{
		opts:    opts,
		cache:   cache,
		history: history,
		monitor: mon,
		origins: newOrigins(opts.AllowedOrigins),
		log:     log,
	}
	s.hub = newHub(s.origins, log)
	notify := deps.Notify
	deps.Notify = func(session string, v governance.View) {
		s.hub.publishView(session, v)
		if notify != nil {
			notify(session, v)
		}
	}
	s.deps = deps
	s.sessions = newSessions(deps)
	return s
}

// ForwardReadings relays monitor readings to every connected browser until ctx ends.
func (s *Server) ForwardReadings(ctx context.Context) error {
	if s.monitor == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	readings, unsubscribe := s.monitor.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-readings:
			s.hub.publishReading(r)
		}
	}
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "dashboard server")
	case <-ctx.Done():
	}
	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "dashboard shutdown")
	}
	return ctx.Err()
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
