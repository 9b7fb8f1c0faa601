package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/salemadams/cash-dash/internal/budget"
	"github.com/salemadams/cash-dash/internal/charting"
	"github.com/salemadams/cash-dash/internal/core"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/services"
	"github.com/salemadams/cash-dash/internal/store"
	"github.com/salemadams/cash-dash/internal/store/memory"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
}

var fixedNow = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func testSeed() store.Seed {
	return store.Seed{
		Transactions: []core.Transaction{
			{ID: "b", Amount: -20, Date: core.ParseDate("2024-03-01T12:00:00Z"), Description: "Groceries", Type: core.Expense, Category: "Food"},
			{ID: "c", Amount: 1000, Date: core.ParseDate("2024-03-02"), Description: "Salary", Type: core.Income, Category: "Salary"},
			{ID: "d", Amount: -70, Date: core.ParseDate("2024-03-10"), Description: "Market", Type: core.Expense, Category: "Food"},
			{ID: "e", Amount: -40, Date: core.ParseDate("2024-03-12"), Description: "Train", Type: core.Expense, Category: "Transport"},
		},
		Budgets: []core.Budget{
			{ID: 1, Name: "Food", Categories: []string{"Food"}, Amount: 100, StartMonth: "2024-01", Recurring: true, IsActive: true, AlertThreshold: 80},
			{ID: 2, Name: "Transport", Categories: []string{"Transport"}, Amount: 100, StartMonth: "2024-03", IsActive: true, AlertThreshold: 80},
		},
	}
}

type serverOption func(*ServerConfig)

func newTestServer(t *testing.T, opts ...serverOption) *Server {
	t.Helper()
	logger := quietLogger()
	st := memory.New(testSeed())
	notifier := services.NewAlertNotifier(st, services.NewLogPublisher(logger), logger)
	dash := services.NewDashboardService(st, notifier, services.DashboardConfig{}, logger)
	ledger := services.NewLedgerService(st, logger, dash.ChartCache())

	cfg := ServerConfig{
		Addr:          ":0",
		FrontendURL:   "http://localhost:5173",
		RatePerMinute: 60,
		Ready:         st.Ping,
		Now:           func() time.Time { return fixedNow },
	}
	for _, o := range opts {
		o(&cfg)
	}
	srv := NewServer(cfg, ledger, dash, logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	srv := newTestServer(t, func(c *ServerConfig) {
		c.Ready = func(context.Context) error { return errors.New("db gone") }
	})
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/transactions",
		`{"id":"n1","amount":-12.5,"date":"2024-03-15","description":"Lunch","type":"expense","category":"Food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	if loc := rr.Header().Get("Location"); loc != "/transactions/n1" {
		t.Fatalf("location = %q", loc)
	}

	rr = do(t, srv, http.MethodPost, "/transactions",
		`{"id":"n1","amount":-1,"date":"2024-03-15","description":"Again","type":"expense"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/transactions/n1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d", rr.Code)
	}
	if tx := decode[core.Transaction](t, rr); tx.Description != "Lunch" || tx.Date.String() != "2024-03-15" {
		t.Fatalf("transaction = %+v", tx)
	}

	rr = do(t, srv, http.MethodPut, "/transactions/n1",
		`{"amount":-15,"date":"2024-03-15","description":"Dinner","type":"expense","category":"Food"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}

	rr = do(t, srv, http.MethodGet, "/transactions?startDate=2024-03-11&endDate=2024-03-31", "")
	txs := decode[[]core.Transaction](t, rr)
	if len(txs) != 2 || txs[0].ID != "e" || txs[1].Description != "Dinner" {
		t.Fatalf("listed = %+v", txs)
	}

	rr = do(t, srv, http.MethodDelete, "/transactions/n1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodGet, "/transactions/n1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", rr.Code)
	}
}

func TestTransactionValidation(t *testing.T) {
	srv := newTestServer(t)
	cases := map[string]string{
		"bad type":     `{"amount":-1,"date":"2024-03-15","description":"x","type":"gift"}`,
		"no desc":      `{"amount":-1,"date":"2024-03-15","description":" ","type":"expense"}`,
		"not json":     `amount=1`,
		"two values":   `{"amount":-1,"date":"2024-03-15","description":"x","type":"expense"}{}`,
		"unknown date": `{"amount":-1,"description":"x","type":"expense"}`,
	}
	for name, body := range cases {
		rr := do(t, srv, http.MethodPost, "/transactions", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d body=%s", name, rr.Code, rr.Body)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/transactions?_limit=-2", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("negative limit status=%d", rr.Code)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/budgets",
		`{"name":"Fun","categories":["Entertainment"],"amount":50,"startMonth":"2024-03","isActive":true,"alertThreshold":90}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[core.Budget](t, rr)
	if created.ID == 0 || created.CreatedAt == "" {
		t.Fatalf("created = %+v", created)
	}

	rr = do(t, srv, http.MethodGet, "/budgets?month=2024-03", "")
	if got := decode[[]core.Budget](t, rr); len(got) != 3 {
		t.Fatalf("active budgets = %d", len(got))
	}
	rr = do(t, srv, http.MethodGet, "/budgets?month=2024-02", "")
	if got := decode[[]core.Budget](t, rr); len(got) != 1 {
		t.Fatalf("february budgets = %d", len(got))
	}
	if rr := do(t, srv, http.MethodGet, "/budgets?month=March", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/budgets/abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/budgets/99", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing budget status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/budgets/transactions?month=2024-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("budget transactions status=%d", rr.Code)
	}
	byID := decode[map[string][]core.Transaction](t, rr)
	if len(byID["1"]) != 2 || len(byID["2"]) != 1 {
		t.Fatalf("grouped = %+v", byID)
	}

	rr = do(t, srv, http.MethodDelete, "/budgets/2", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
}

func TestBudgetHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/budgets/health?month=2024-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	report := decode[budget.Report](t, rr)
	want := budget.Health{TotalBudgeted: 200, TotalSpent: 130, TotalRemaining: 70, PercentageUsed: 65}
	if report.Health != want {
		t.Fatalf("health = %+v, want %+v", report.Health, want)
	}
	if len(report.Triggers) != 1 || report.Triggers[0] != 1 {
		t.Fatalf("alerts = %v", report.Triggers)
	}
	if report.Budgets[0].Color != budget.Critical {
		t.Fatalf("food color = %q", report.Budgets[0].Color)
	}
}

func TestChartEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/charts/line?startDate=2024-03-01&endDate=2024-03-31&interval=week&groupBy=category", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("line status=%d body=%s", rr.Code, rr.Body)
	}
	line := decode[charting.LineChart](t, rr)
	if len(line.Labels) == 0 || len(line.Series) == 0 {
		t.Fatalf("line chart = %+v", line)
	}

	rr = do(t, srv, http.MethodGet, "/api/charts/doughnut?startDate=2024-03-01&endDate=2024-03-31", "")
	d := decode[charting.Doughnut](t, rr)
	if d.Total != 130 || len(d.Slices) != 2 {
		t.Fatalf("doughnut = %+v", d)
	}

	rr = do(t, srv, http.MethodGet, "/api/charts/bar?months=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("bar status=%d", rr.Code)
	}
	if bars := decode[charting.BarChart](t, rr); len(bars.Labels) != 3 {
		t.Fatalf("bar labels = %v", bars.Labels)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary?startDate=2024-03-01&endDate=2024-03-31&type=expense", "")
	if s := decode[charting.Summary](t, rr); s.Count != 3 || s.Expenses != -130 {
		t.Fatalf("summary = %+v", s)
	}

	for _, target := range []string{
		"/api/charts/line?interval=fortnight",
		"/api/charts/line?groupBy=merchant",
		"/api/charts/line?startDate=0&endDate=8640000000000000&interval=day",
		"/api/charts/doughnut?startDate=2024-04-01&endDate=2024-03-01",
		"/api/charts/bar?months=0",
		"/api/summary?type=gift",
	} {
		rr := do(t, srv, http.MethodGet, target, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d", target, rr.Code)
			continue
		}
		if body := decode[map[string]string](t, rr); body["error"] == "" {
			t.Errorf("%s missing error message", target)
		}
	}
}

func TestLineChartIsCachedUntilWrite(t *testing.T) {
	srv := newTestServer(t)
	target := "/api/charts/line?startDate=2024-03-01&endDate=2024-03-31"
	do(t, srv, http.MethodGet, target, "")
	do(t, srv, http.MethodGet, target, "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	m := decode[metricsBody](t, rr)
	if m.ChartCache.Hits != 1 || m.ChartCache.Size != 1 {
		t.Fatalf("cache stats = %+v", m.ChartCache)
	}

	do(t, srv, http.MethodDelete, "/transactions/b", "")
	rr = do(t, srv, http.MethodGet, "/metrics", "")
	if m := decode[metricsBody](t, rr); m.ChartCache.Size != 0 {
		t.Fatalf("write should purge the chart cache, size=%d", m.ChartCache.Size)
	}
	if m.HTTP.TotalRequests < 3 {
		t.Fatalf("http metrics = %+v", m.HTTP)
	}
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	srv := newTestServer(t, func(c *ServerConfig) { c.RatePerMinute = 1 })

	if rr := do(t, srv, http.MethodPost, "/budgets", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("first write status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/budgets", `{}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatal("missing Retry-After")
	}
	for i := 0; i < 3; i++ {
		if rr := do(t, srv, http.MethodGet, "/budgets", ""); rr.Code != http.StatusOK {
			t.Fatalf("reads must not be limited, status=%d", rr.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/transactions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatal("missing allow origin")
	}

	req = httptest.NewRequest(http.MethodOptions, "/transactions", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign preflight status=%d", rr.Code)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
