package logsource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ResolverClient checks an external "is this domain already blocked"
// endpoint before log-processor bothers queueing it for classification.
// Transport errors are logged at warn and treated as "proceed anyway" —
// the resolver check is an optimization, not a correctness requirement.
type ResolverClient struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

// NewResolverClient builds a client with a sane default timeout.
func NewResolverClient(baseURL string, logger *slog.Logger) *ResolverClient {
	return &ResolverClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 3 * time.Second},
		Logger:  logger,
	}
}

type resolverResponse struct {
	Blocked bool `json:"blocked"`
}

// AlreadyBlocked queries BaseURL?domain=<domain>. On any transport or
// decode failure it logs a warning and returns false (proceed anyway),
// never treating the check itself as fatal to the queue decision.
func (r *ResolverClient) AlreadyBlocked(ctx context.Context, domain string) bool {
	if r.BaseURL == "" {
		return false
	}

	u, err := url.Parse(r.BaseURL)
	if err != nil {
		r.logWarn("parse resolver-api-url", err)
		return false
	}
	q := u.Query()
	q.Set("domain", domain)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		r.logWarn("build resolver request", err)
		return false
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		r.logWarn("resolver request", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logWarn("resolver request", fmt.Errorf("unexpected status %d", resp.StatusCode))
		return false
	}

	var parsed resolverResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		r.logWarn("decode resolver response", err)
		return false
	}
	return parsed.Blocked
}

func (r *ResolverClient) logWarn(action string, err error) {
	if r.Logger == nil {
		return
	}
	r.Logger.Warn("resolver check failed, proceeding anyway", "action", action, "error", err)
}
