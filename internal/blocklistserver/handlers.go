package blocklistserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DomainLister is the subset of eventstore.Store the blocklist endpoint
// needs — narrowed so handlers can be tested against a fake.
type DomainLister interface {
	DomainsValidAt(ctx context.Context, classificationType string, at time.Time) ([]string, error)
}

type handlers struct {
	store           DomainLister
	blocklistRequests *prometheus.CounterVec
}

func newHandlers(store DomainLister, reg *prometheus.Registry) *handlers {
	h := &handlers{
		store: store,
		blocklistRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dns_smart_block_blocklist_requests_total",
			Help: "Total /blocklist requests, by classification type and outcome.",
		}, []string{"type", "outcome"}),
	}
	reg.MustRegister(h.blocklistRequests)
	return h
}

// handleBlocklist serves GET /blocklist?type=<t>&at=<iso8601>?, returning
// the domains with a valid classification of `type` at instant `at`
// (defaulting to now) as a newline-separated plain-text list.
func (h *handlers) handleBlocklist(w http.ResponseWriter, r *http.Request) {
	classificationType := r.URL.Query().Get("type")

	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.blocklistRequests.WithLabelValues(classificationType, "bad_request").Inc()
			http.Error(w, "Invalid time format: "+err.Error(), http.StatusBadRequest)
			return
		}
		at = parsed
	}

	domains, err := h.store.DomainsValidAt(r.Context(), classificationType, at)
	if err != nil {
		h.blocklistRequests.WithLabelValues(classificationType, "error").Inc()
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.blocklistRequests.WithLabelValues(classificationType, "ok").Inc()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(strings.Join(domains, "\n")))
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}
