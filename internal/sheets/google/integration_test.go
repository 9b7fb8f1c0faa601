//go:build integration

package google

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/salemadams/cash-dash/internal/amqp"
)

// Integration tests require a real spreadsheet and service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendAlert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := Config{
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:       os.Getenv("GOOGLE_ALERTS_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.SpreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		t.Skip("service account not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}

	ref, err := client.AppendAlert(ctx, &amqp.BudgetAlertMessage{
		BudgetID:   -1,
		Name:       "Integration test",
		Month:      time.Now().UTC().Format("2006-01"),
		Spent:      90,
		Amount:     100,
		Percentage: 90,
		Threshold:  80,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AppendAlert: %v", err)
	}
	if !strings.HasPrefix(ref, client.sheet) {
		t.Errorf("ref %q does not point into sheet %q", ref, client.sheet)
	}
	t.Logf("Appended test alert at %s", ref)
}
