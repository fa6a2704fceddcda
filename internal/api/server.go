// Package api exposes the registry, issuance and markets over HTTP.
package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/issuance"
	"token-launchpad/internal/market"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/storage"
)

// BaseBalances reads base-currency balances.
type BaseBalances interface {
	BalanceOf(account domain.Account) sdkmath.Int
}

// Options configures a Server.
type Options struct {
	Registry  *registry.Registry
	Directory *market.Directory
	Issuer    *issuance.Coordinator
	Base      BaseBalances

	Events storage.EventStore // optional; backs /v1/events
	Trades storage.TradeStore // optional; backs /v1/markets/{address}/trades

	Hub     *Hub                   // optional; backs /v1/events/ws
	Metrics *observability.Metrics // optional

	RequireSignatures bool
	SignatureWindow   time.Duration    // defaults to DefaultSignatureWindow
	Now               func() time.Time // defaults to time.Now
	Logger            *log.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	registry          *registry.Registry
	directory         *market.Directory
	issuer            *issuance.Coordinator
	base              BaseBalances
	events            storage.EventStore
	trades            storage.TradeStore
	hub               *Hub
	metrics           *observability.Metrics
	requireSignatures bool
	replay            *replayGuard
	now               func() time.Time
	logger            *log.Logger

	mu        sync.Mutex
	startedAt time.Time
	served    int64
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		registry:          opts.Registry,
		directory:         opts.Directory,
		issuer:            opts.Issuer,
		base:              opts.Base,
		events:            opts.Events,
		trades:            opts.Trades,
		hub:               opts.Hub,
		metrics:           opts.Metrics,
		requireSignatures: opts.RequireSignatures,
		replay:            newReplayGuard(opts.SignatureWindow, defaultMaxNonces),
		now:               opts.Now,
		logger:            opts.Logger,
		startedAt:         time.Now(),
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", observability.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Route("/requests", func(rq chi.Router) {
			rq.Get("/", s.listRequests)
			rq.Get("/{id}", s.getRequest)
			rq.With(s.authenticate).Post("/", s.submitRequest)
			rq.With(s.authenticate).Post("/{id}/approve", s.approveRequest)
			rq.With(s.authenticate).Post("/{id}/reject", s.rejectRequest)
			rq.With(s.authenticate).Post("/{id}/issue", s.issueRequest)
		})

		api.Get("/admins", s.getAdmins)
		api.With(s.authenticate).Put("/admins", s.putAdmins)

		api.Route("/markets", func(mk chi.Router) {
			mk.Get("/", s.listMarkets)
			mk.Get("/{address}", s.getMarket)
			mk.Get("/{address}/quote", s.quote)
			mk.Get("/{address}/balances/{account}", s.tokenBalance)
			mk.Get("/{address}/trades", s.marketTrades)
			mk.With(s.authenticate).Post("/{address}/buy", s.buy)
			mk.With(s.authenticate).Post("/{address}/sell", s.sell)
		})

		api.Get("/balances/{account}", s.baseBalance)
		api.Get("/events", s.listEvents)
		if s.hub != nil {
			api.Handle("/events/ws", s.hub)
		}
	})

	return r
}

// instrument records request metrics by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.mu.Lock()
		s.served++
		s.mu.Unlock()

		if s.metrics == nil {
			return
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTPRequest(route, status, time.Since(start))
	})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	StartedAt time.Time `json:"started_at"`
	Requests  int       `json:"requests"`
	Markets   int       `json:"markets"`
	Threshold int       `json:"threshold"`
	Admins    int       `json:"admins"`
	EventHead int64     `json:"event_head"`
	WSClients int       `json:"ws_clients"`
	Served    int64     `json:"served"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	set := s.registry.AdminSet()
	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		StartedAt: s.startedAt,
		Requests:  len(s.registry.List("")),
		Markets:   s.directory.Len(),
		Threshold: set.Threshold,
		Admins:    len(set.Admins),
	}
	if s.events != nil {
		if last, err := s.events.Last(r.Context()); err == nil {
			resp.EventHead = last.Seq
		}
	}
	if s.hub != nil {
		resp.WSClients = s.hub.Clients()
	}
	s.mu.Lock()
	resp.Served = s.served
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}
