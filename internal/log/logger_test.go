package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentStorage, Output: &buf})

	logger.Info("Database seeded", "transactions", 3)
	logger.WithComponent(ComponentCache).Debug("Cache purged")
	logger.With(FieldRequestID, "req_1").Warn("Slow query")

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 records, got %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentStorage || lines[0]["transactions"] != float64(3) {
		t.Fatalf("first record = %v", lines[0])
	}
	if lines[1][FieldComponent] != ComponentCache {
		t.Fatalf("second record = %v", lines[1])
	}
	if lines[2][FieldRequestID] != "req_1" || lines[2]["level"] != "WARN" {
		t.Fatalf("third record = %v", lines[2])
	}
}

func TestLevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})
	logger.Info("hidden")
	logger.Error("shown")
	if lines := decodeLines(t, &buf); len(lines) != 1 || lines[0]["msg"] != "shown" {
		t.Fatalf("records = %v", lines)
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
	logger := New(Config{Component: ComponentHTTP, Output: &bytes.Buffer{}})
	ctx := IntoContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected stored logger")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}))
	ctx := context.Background()
	r := httptest.NewRequest("GET", "/api/summary?q=food", nil)

	sl.LogHTTPStart(ctx, r, "req_1", "10.0.0.1")
	sl.LogHTTPEnd(ctx, r, "req_1", 404, 12, "10.0.0.1")
	sl.LogHTTPEnd(ctx, r, "req_1", 503, 12, "10.0.0.1")
	sl.LogBudgetAlert(ctx, "Budget alert published", 4, "Food", "2024-03", 92, 80)
	sl.LogError(ctx, "Publish failed", errors.New("boom"), ComponentAMQP, OpPublish, nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 5 {
		t.Fatalf("expected 5 records, got %d", len(lines))
	}
	if lines[0][FieldQuery] != "q=food" || lines[0][FieldComponent] != ComponentHTTP {
		t.Fatalf("start record = %v", lines[0])
	}
	if lines[1]["level"] != "WARN" || lines[2]["level"] != "ERROR" {
		t.Fatalf("end levels = %v / %v", lines[1]["level"], lines[2]["level"])
	}
	if lines[3][FieldBudgetID] != float64(4) || lines[3][FieldComponent] != ComponentBudget {
		t.Fatalf("alert record = %v", lines[3])
	}
	if lines[4][FieldError] != "boom" || lines[4][FieldComponent] != ComponentAMQP {
		t.Fatalf("error record = %v", lines[4])
	}
}

func TestFieldsToSliceIsSorted(t *testing.T) {
	got := NewFields().WithOperation(OpList).WithClientIP("ip").ToSlice()
	if len(got) != 4 || got[0] != FieldClientIP || got[2] != FieldOperation {
		t.Fatalf("slice = %v", got)
	}
}
