package blocklistserver_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoganBarnett/dns-smart-block/internal/blocklistserver"
	"github.com/LoganBarnett/dns-smart-block/internal/eventstore"
)

type fakeStore struct {
	domains   []string
	domainErr error
	metrics   eventstore.Metrics
}

func (f *fakeStore) DomainsValidAt(_ context.Context, _ string, _ time.Time) ([]string, error) {
	if f.domainErr != nil {
		return nil, f.domainErr
	}
	return f.domains, nil
}

func (f *fakeStore) MetricsSnapshot(_ context.Context) (eventstore.Metrics, error) {
	return f.metrics, nil
}

func newTestServer(store *fakeStore) *blocklistserver.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return blocklistserver.New(blocklistserver.Config{
		Store:        store,
		Logger:       logger,
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
}

func TestHandleBlocklistReturnsDomains(t *testing.T) {
	store := &fakeStore{domains: []string{"b.test", "a.test"}}
	srv := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/blocklist?type=adult-content", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "b.test\na.test", w.Body.String())
}

func TestHandleBlocklistInvalidTimeIs400(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/blocklist?type=x&at=not-a-time", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid time format")
}

func TestHandleBlocklistStoreErrorIs500(t *testing.T) {
	store := &fakeStore{domainErr: assert.AnError}
	srv := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/blocklist?type=x", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHandleMetricsExposesPrometheusFormat(t *testing.T) {
	store := &fakeStore{metrics: eventstore.Metrics{
		DomainsTotal:           3,
		ClassificationsCurrent: map[string]int{"adult-content": 2},
		ClassificationsTotal:   map[string]int{"adult-content": 5},
		EventsTotal:            map[string]int{"queued": 7},
	}}
	srv := newTestServer(store)

	// The requests counter vector is only exposed once a /blocklist request has
	// been counted.
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/blocklist?type=adult-content", nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dns_smart_block_blocklist_requests_total")
}
