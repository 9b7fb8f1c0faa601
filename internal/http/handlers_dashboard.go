package http

import (
	"net/http"

	"github.com/salemadams/cash-dash/internal/cache"
	"github.com/salemadams/cash-dash/internal/middleware/ratelimit"
	"github.com/salemadams/cash-dash/internal/middleware/trace"
)

func (s *Server) handleLineChart(w http.ResponseWriter, r *http.Request) {
	q, err := s.parser.ParseLineQuery(r.URL.Query())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	chart, err := s.dashboard.LineChart(r.Context(), q)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(chart).Write(w)
}

func (s *Server) handleDoughnut(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parser.ParseRange(r.URL.Query())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	d, err := s.dashboard.Doughnut(r.Context(), rng)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	months, err := ParseMonths(r.URL.Query())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	bars, err := s.dashboard.Bars(r.Context(), months)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(bars).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, err := s.parser.ParseSummaryQuery(r.URL.Query())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	summary, err := s.dashboard.Summary(r.Context(), q)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleBudgetHealth(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	report, err := s.dashboard.BudgetReport(r.Context(), month)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

type metricsBody struct {
	HTTP       trace.Metrics     `json:"http"`
	RateLimit  ratelimit.Metrics `json:"rateLimit"`
	ChartCache cache.Stats       `json:"chartCache"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(metricsBody{
		HTTP:       s.tracer.GetMetrics(),
		RateLimit:  s.limiter.GetMetrics(),
		ChartCache: s.dashboard.ChartCache().Stats(),
	}).Write(w)
}
