package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/salemadams/cash-dash/internal/cache"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/middleware/ratelimit"
	"github.com/salemadams/cash-dash/internal/middleware/security"
	"github.com/salemadams/cash-dash/internal/middleware/trace"
	"github.com/salemadams/cash-dash/internal/services"
)

// ServerConfig carries what the HTTP layer needs beyond its services.
type ServerConfig struct {
	Addr          string
	FrontendURL   string
	RatePerMinute int
	Location      *time.Location
	// CleanupInterval is how often expired chart cache entries are dropped.
	CleanupInterval time.Duration
	// Ready reports whether the store can serve requests.
	Ready func(context.Context) error
	// Now overrides the clock used for query defaults.
	Now func() time.Time
	// MaxBuckets caps the labels of one line chart.
	MaxBuckets int
}

type Server struct {
	http.Server

	ledger    *services.LedgerService
	dashboard *services.DashboardService
	parser    *RequestParser
	ready     func(context.Context) error
	logger    *applog.Logger

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	clientIP *security.ClientIP
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run http.Server.
func NewServer(cfg ServerConfig, ledger *services.LedgerService, dashboard *services.DashboardService, logger *applog.Logger) *Server {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ledger:    ledger,
		dashboard: dashboard,
		parser:    NewRequestParser(cfg.Location, cfg.Now).WithMaxBuckets(cfg.MaxBuckets),
		ready:     cfg.Ready,
		logger:    logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RatePerMinute,
		}),
		clientIP: security.NewClientIP(),
		caches:   cache.NewManager(logger),
	}
	s.tracer = trace.NewMiddleware(logger, s.clientIP.Extract)

	s.caches.Register(dashboard.ChartCache())
	s.caches.StartCleanup(cfg.CleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = s.limiter.Middleware(s.clientIP.Extract, s.onRateLimit)(h)
	h = security.CORS(cfg.FrontendURL)(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /budgets", s.handleListBudgets)
	mux.HandleFunc("POST /budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /budgets/transactions", s.handleBudgetTransactions)
	mux.HandleFunc("GET /budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("PUT /budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/charts/line", s.handleLineChart)
	mux.HandleFunc("GET /api/charts/doughnut", s.handleDoughnut)
	mux.HandleFunc("GET /api/charts/bar", s.handleBars)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/budgets/health", s.handleBudgetHealth)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP.Extract(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// Shutdown stops background cleanup and then the HTTP server. It runs once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
