package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/salemadams/cash-dash/internal/amqp"
	applog "github.com/salemadams/cash-dash/internal/log"
	"github.com/salemadams/cash-dash/internal/sheets/memory"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
}

type failingSink struct{ err error }

func (f failingSink) AppendAlert(context.Context, *amqp.BudgetAlertMessage) (string, error) {
	return "", f.err
}

type headerSink struct {
	*memory.Sink
	prepared bool
	err      error
}

func (h *headerSink) EnsureHeader(context.Context) error {
	h.prepared = true
	return h.err
}

func TestHandleRecordsAlert(t *testing.T) {
	sink := memory.New(0)
	w := NewAlertWorker(sink, quietLogger())
	msg := &amqp.BudgetAlertMessage{BudgetID: 4, Name: "Food", Month: "2024-03", Spent: 90, Amount: 100, Percentage: 90, Threshold: 80}

	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got, _ := sink.ListAlerts(context.Background())
	if len(got) != 1 || got[0].BudgetID != 4 {
		t.Fatalf("sink = %+v", got)
	}
	if handled, dropped := w.Stats(); handled != 1 || dropped != 0 {
		t.Fatalf("stats = %d/%d", handled, dropped)
	}
}

func TestHandleDropsMalformed(t *testing.T) {
	sink := memory.New(0)
	w := NewAlertWorker(sink, quietLogger())

	for _, msg := range []*amqp.BudgetAlertMessage{
		{Month: "2024-03"},
		{BudgetID: 1, Month: "March"},
		{BudgetID: 1},
	} {
		if err := w.Handle(context.Background(), msg); err != nil {
			t.Fatalf("malformed alert %+v should be dropped without error, got %v", msg, err)
		}
	}
	got, _ := sink.ListAlerts(context.Background())
	if len(got) != 0 {
		t.Fatalf("malformed alerts reached the sink: %+v", got)
	}
	if _, dropped := w.Stats(); dropped != 3 {
		t.Fatalf("dropped = %d, want 3", dropped)
	}
}

func TestHandleReturnsSinkErrors(t *testing.T) {
	sinkErr := errors.New("quota exceeded")
	w := NewAlertWorker(failingSink{err: sinkErr}, quietLogger())
	err := w.Handle(context.Background(), &amqp.BudgetAlertMessage{BudgetID: 1, Month: "2024-03"})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("err = %v, want wrapped %v", err, sinkErr)
	}
}

func TestPrepare(t *testing.T) {
	if err := NewAlertWorker(memory.New(0), quietLogger()).Prepare(context.Background()); err != nil {
		t.Fatalf("plain sink needs no preparation: %v", err)
	}

	hs := &headerSink{Sink: memory.New(0)}
	if err := NewAlertWorker(hs, quietLogger()).Prepare(context.Background()); err != nil || !hs.prepared {
		t.Fatalf("prepare = %v, prepared = %v", err, hs.prepared)
	}

	hs = &headerSink{Sink: memory.New(0), err: errors.New("forbidden")}
	if err := NewAlertWorker(hs, quietLogger()).Prepare(context.Background()); err == nil {
		t.Fatal("expected the header error")
	}
}
