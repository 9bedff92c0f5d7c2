package logsource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LoganBarnett/dns-smart-block/internal/logsource"
)

func TestAlreadyBlockedTrue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "evil.example.com", r.URL.Query().Get("domain"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"blocked":true}`))
	}))
	defer srv.Close()

	client := logsource.NewResolverClient(srv.URL, nil)
	assert.True(t, client.AlreadyBlocked(context.Background(), "evil.example.com"))
}

func TestAlreadyBlockedFalseOnTransportError(t *testing.T) {
	client := logsource.NewResolverClient("http://127.0.0.1:1", nil)
	assert.False(t, client.AlreadyBlocked(context.Background(), "example.com"))
}

func TestAlreadyBlockedEmptyBaseURLSkipsCheck(t *testing.T) {
	client := logsource.NewResolverClient("", nil)
	assert.False(t, client.AlreadyBlocked(context.Background(), "example.com"))
}
