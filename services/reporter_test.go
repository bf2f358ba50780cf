package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"listing-importer/metrics"
	"listing-importer/models"
	"listing-importer/storage"
	"listing-importer/utils"
)

func sampleStats() *models.ImportStats {
	return &models.ImportStats{
		Lines:           5,
		ListingsCreated: 3,
		OwnersCreated:   2,
		OwnersReused:    1,
		Failed:          2,
		ParseFailures:   1,
		StoreFailures:   1,
		Duration:        1500 * time.Millisecond,
	}
}

func TestReportClosesConnectionOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	conn, _ := store.Connect(context.Background(), "")
	out := &bytes.Buffer{}
	r := NewReporter(out, utils.NewNopLogger(), nil, "", "")

	if err := r.Report(context.Background(), conn, "run-1", sampleStats(), nil); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if store.Closes() != 1 {
		t.Errorf("closes: got %d, want 1", store.Closes())
	}
	if !strings.Contains(out.String(), "3 rows imported.") {
		t.Errorf("summary missing row count:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "(parse 1, store 1)") {
		t.Errorf("summary missing failure breakdown:\n%s", out.String())
	}
}

func TestReportReturnsFatalError(t *testing.T) {
	out := &bytes.Buffer{}
	logger, logs := utils.NewObservedLogger()
	r := NewReporter(out, logger, nil, "", "")
	fatal := &ConnectionError{Err: errors.New("connection refused")}

	err := r.Report(context.Background(), nil, "run-2", &models.ImportStats{}, fatal)
	if err != fatal {
		t.Errorf("Report: got %v, want the fatal error unchanged", err)
	}
	if !strings.Contains(out.String(), "FAILED") {
		t.Errorf("summary should mark the run failed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "0 rows imported.") {
		t.Errorf("summary missing row count:\n%s", out.String())
	}
	if logs.FilterMessageSnippet("run-2 failed").Len() != 1 {
		t.Errorf("expected one failure log entry, got %v", logs.All())
	}
}

func TestReportPushesMetrics(t *testing.T) {
	pushed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewReporter(&bytes.Buffer{}, utils.NewNopLogger(), metrics.NewImport(), srv.URL, "listing_import")
	if err := r.Report(context.Background(), nil, "run-3", sampleStats(), nil); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if pushed != 1 {
		t.Errorf("pushes: got %d, want 1", pushed)
	}
}

func TestRecordsPerSecond(t *testing.T) {
	s := sampleStats()
	if got := s.RecordsPerSecond(); got != 2 {
		t.Errorf("RecordsPerSecond: got %.2f, want 2", got)
	}
	if got := (&models.ImportStats{ListingsCreated: 5}).RecordsPerSecond(); got != 0 {
		t.Errorf("RecordsPerSecond without duration: got %.2f, want 0", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate: got %q", got)
	}
	if got := truncate("a much longer message", 10); got != "a much ..." {
		t.Errorf("truncate: got %q, want %q", got, "a much ...")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	got := truncate(strings.Repeat("é", 40), 20)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 17) + "..."; got != want {
		t.Errorf("truncate: got %q, want %q", got, want)
	}
	if got := truncate("ünïcödé", 10); got != "ünïcödé" {
		t.Errorf("truncate should keep short multi-byte strings: got %q", got)
	}
}

func TestReportPushesMetricsAfterCancel(t *testing.T) {
	pushed := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger, logs := utils.NewObservedLogger()
	r := NewReporter(&bytes.Buffer{}, logger, metrics.NewImport(), srv.URL, "listing_import")
	if err := r.Report(ctx, nil, "run-4", sampleStats(), context.Canceled); err != context.Canceled {
		t.Fatalf("Report: got %v, want context.Canceled", err)
	}
	if pushed != 1 {
		t.Errorf("pushes after interrupt: got %d, want 1", pushed)
	}
	if n := logs.FilterMessageSnippet("metrics: push").Len(); n != 0 {
		t.Errorf("unexpected push warning: %v", logs.All())
	}
}
