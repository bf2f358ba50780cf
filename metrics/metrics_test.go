package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCounters(t *testing.T) {
	m := NewImport()

	m.ObserveLine(time.Millisecond)
	m.ObserveLine(2 * time.Millisecond)
	m.ObserveLine(3 * time.Millisecond)
	m.ListingCreated()
	m.ListingCreated()
	m.OwnerResolved(true)
	m.OwnerResolved(false)
	m.Failed(ReasonParse)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Lines))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ListingsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Owners.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Owners.WithLabelValues("reused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues(ReasonParse)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Failures.WithLabelValues(ReasonStore)))
}

func TestRunsDoNotShareRegistry(t *testing.T) {
	a, b := NewImport(), NewImport()
	a.ListingCreated()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ListingsCreated))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ListingsCreated))
}

func TestNilImportIsNoop(t *testing.T) {
	var m *Import
	m.ObserveLine(time.Second)
	m.ListingCreated()
	m.OwnerResolved(true)
	m.Failed(ReasonStore)
	assert.NoError(t, m.Push(context.Background(), "http://unused", "job", "run"))
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewImport()
	m.ListingCreated()

	require.NoError(t, m.Push(context.Background(), srv.URL, "listing_import", "run-1"))
	assert.True(t, strings.HasPrefix(gotPath, "/metrics/job/listing_import"), gotPath)
	assert.Contains(t, gotPath, "run_id/run-1")
	assert.NotEmpty(t, gotBody)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewImport().Push(context.Background(), srv.URL, "listing_import", "run-1")
	assert.Error(t, err)
}
