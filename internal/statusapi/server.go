// Package statusapi expone el estado del nodo por HTTP: health, métricas
// Prometheus y los últimos snapshots persistidos.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/observability/logger"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/snapshot"
)

const (
	defaultCacheTTL = time.Second
	shutdownTimeout = 5 * time.Second
)

// Reader lee los snapshots (*snapshot.Store lo cumple).
type Reader interface {
	LoadScoring() (snapshot.Scoring, error)
	LoadSplit() (snapshot.Split, error)
}

type Options struct {
	Addr     string
	NodeID   string
	BootID   string
	Reader   Reader
	Gatherer prometheus.Gatherer // nil = prometheus.DefaultGatherer
	CacheTTL time.Duration       // <=0 = 1s
	Log      *zap.Logger
}

type Server struct {
	opts  Options
	cache *gocache.Cache
	log   *zap.Logger
}

func New(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	l := opts.Log
	if l == nil {
		l = logger.Named("statusapi")
	}
	return &Server{
		opts:  opts,
		cache: gocache.New(opts.CacheTTL, time.Minute),
		log:   l,
	}
}

// Handler arma el router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/node", s.snapshotHandler(snapshot.KindScoring, func() (any, error) { return s.opts.Reader.LoadScoring() }))
		r.Get("/split", s.snapshotHandler(snapshot.KindSplit, func() (any, error) { return s.opts.Reader.LoadSplit() }))
	})
	return r
}

// Run escucha en Options.Addr y sirve hasta que ctx se cancele.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve sirve sobre ln hasta que ctx se cancele; después hace shutdown ordenado.
// Cierra ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status api listening", logger.Addr(ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shCtx)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"node":    s.opts.NodeID,
		"boot_id": s.opts.BootID,
	})
}

func (s *Server) snapshotHandler(kind string, load func() (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v, ok := s.cache.Get(kind); ok {
			writeJSON(w, http.StatusOK, v)
			return
		}
		v, err := load()
		switch {
		case errors.Is(err, snapshot.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		case err != nil:
			s.log.Warn("snapshot read failed", logger.Kind(kind), logger.Err(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "read_failed"})
			return
		}
		s.cache.SetDefault(kind, v)
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
