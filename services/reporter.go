package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"listing-importer/metrics"
	"listing-importer/models"
	"listing-importer/storage"
	"listing-importer/utils"
)

const pushTimeout = 5 * time.Second

// Reporter ends an import run: it releases the store connection, prints
// the summary, pushes metrics and hands back the run's fatal error.
type Reporter struct {
	out     io.Writer
	logger  *utils.Logger
	metrics *metrics.Import
	pushURL string
	job     string
}

// NewReporter writes summaries to out. Metrics are pushed only when
// pushURL is set.
func NewReporter(out io.Writer, logger *utils.Logger, m *metrics.Import, pushURL, job string) *Reporter {
	return &Reporter{out: out, logger: logger, metrics: m, pushURL: pushURL, job: job}
}

// Report is called once per run. conn is nil when the store was never
// reached. The returned error is fatal, unchanged.
func (r *Reporter) Report(ctx context.Context, conn storage.Conn, runID string, stats *models.ImportStats, fatal error) error {
	if conn != nil {
		if err := conn.Close(); err != nil {
			r.logger.Warn("[reporter] Closing store connection: %v", err)
		}
	}

	r.Print(stats, fatal)

	if fatal != nil {
		r.logger.Error("[reporter] Import %s failed after %d lines: %v", runID, stats.Lines, fatal)
	} else {
		r.logger.Info("[reporter] Import %s completed: %d listings, %d failed lines",
			runID, stats.ListingsCreated, stats.Failed)
	}

	if r.pushURL != "" {
		// An interrupted run still reports its metrics.
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := r.metrics.Push(pushCtx, r.pushURL, r.job, runID); err != nil {
			r.logger.Warn("[reporter] %v", err)
		}
	}

	return fatal
}

// Print writes the run summary, ending with the rows-imported line.
func (r *Reporter) Print(s *models.ImportStats, fatal error) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	w := r.out

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  LISTING IMPORT SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Records\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Lines read        : \033[1m%d\033[0m\n", s.Lines)
	fmt.Fprintf(w, "  Listings created  : \033[1;32m%d\033[0m\n", s.ListingsCreated)
	fmt.Fprintf(w, "  Failed lines      : \033[1;31m%d\033[0m", s.Failed)
	if s.Failed > 0 {
		fmt.Fprintf(w, " (parse %d, store %d)", s.ParseFailures, s.StoreFailures)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Owners\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Created : \033[1m%d\033[0m\n", s.OwnersCreated)
	fmt.Fprintf(w, "  Reused  : \033[1m%d\033[0m\n", s.OwnersReused)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Duration : %v (%.2f listings/s)\n", s.Duration.Round(time.Millisecond), s.RecordsPerSecond())
	if fatal != nil {
		fmt.Fprintf(w, "  Status   : \033[1;31mFAILED\033[0m %s\n", truncate(fatal.Error(), 60))
	} else {
		fmt.Fprintf(w, "  Status   : \033[1;32mOK\033[0m\n")
	}

	fmt.Fprintf(w, "\n%d rows imported.\n", s.ListingsCreated)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
