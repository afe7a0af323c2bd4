// Package gateway exposes the engine over HTTP.
//
// Writes go through POST /v1/operations and are sequenced by the engine's
// Run loop; the caller identity is taken from the X-Caller-Address header,
// which an upstream proxy has already authenticated. Reads are served from
// the in-memory state or the log.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/dajeum/internal/engine"
	"github.com/roach88/dajeum/internal/store"
)

// Headers read by the gateway.
const (
	HeaderCaller    = "X-Caller-Address"
	HeaderRequestID = "X-Request-ID"
)

// MaxBodyBytes bounds an operation request body.
const MaxBodyBytes = 1 << 20

// Server routes HTTP requests to one engine.
type Server struct {
	engine  *engine.Engine
	store   *store.Store
	metrics *Metrics
	router  *mux.Router
}

// New builds the router. m may be nil, in which case a private registry is
// created; pass the same Metrics to engine.WithObserver to count outcomes.
func New(eng *engine.Engine, s *store.Store, m *Metrics) *Server {
	if m == nil {
		m = NewMetrics()
	}
	m.queueDepthFunc = func() float64 { return float64(eng.QueueLen()) }
	seq, _ := eng.Head()
	m.SetHead(seq)

	srv := &Server{engine: eng, store: s, metrics: m, router: mux.NewRouter()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.instrument)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/operations", s.submitOperation).Methods(http.MethodPost)
	v1.HandleFunc("/names/{id:[0-9]+}", s.getName).Methods(http.MethodGet)
	v1.HandleFunc("/names/{id:[0-9]+}/certificates", s.getNameCertificates).Methods(http.MethodGet)
	v1.HandleFunc("/certificates/{id:[0-9]+}", s.getCertificate).Methods(http.MethodGet)
	v1.HandleFunc("/balances/{address}", s.getBalance).Methods(http.MethodGet)
	v1.HandleFunc("/allowances/{owner}/{spender}", s.getAllowance).Methods(http.MethodGet)
	v1.HandleFunc("/services", s.listServices).Methods(http.MethodGet)
	v1.HandleFunc("/services/{name}", s.getService).Methods(http.MethodGet)
	v1.HandleFunc("/token", s.getToken).Methods(http.MethodGet)
	v1.HandleFunc("/log", s.readLog).Methods(http.MethodGet)
	v1.HandleFunc("/log/{seq:[0-9]+}", s.readEntry).Methods(http.MethodGet)
	v1.HandleFunc("/events/{name}", s.readEvents).Methods(http.MethodGet)
	v1.HandleFunc("/snapshot", s.snapshot).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts and times every request by its route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		timer := prometheus.NewTimer(s.metrics.httpLatency.WithLabelValues(r.Method, route))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()
		s.metrics.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down within
// grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	slog.Info("gateway shutting down", "grace", grace)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
