package dnsdomain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LoganBarnett/dns-smart-block/internal/dnsdomain"
)

func TestExtractDnsdistQueryFormat(t *testing.T) {
	domain, ok := dnsdomain.Extract("Query from 192.168.1.100:54321: example.com IN A")
	assert.True(t, ok)
	assert.Equal(t, "example.com", domain)

	domain, ok = dnsdomain.Extract("Query from 10.0.0.5:12345: test.example.org IN AAAA")
	assert.True(t, ok)
	assert.Equal(t, "test.example.org", domain)
}

func TestExtractClientFormat(t *testing.T) {
	domain, ok := dnsdomain.Extract("client 192.168.1.1#53210 (example.com): query: example.com IN A")
	assert.True(t, ok)
	assert.Equal(t, "example.com", domain)
}

func TestExtractSimpleQueryFormat(t *testing.T) {
	domain, ok := dnsdomain.Extract("query: example.com")
	assert.True(t, ok)
	assert.Equal(t, "example.com", domain)
}

func TestExtractDomainWithQueryType(t *testing.T) {
	domain, ok := dnsdomain.Extract("2024-01-16 10:00:00 example.com A query from 192.168.1.1")
	assert.True(t, ok)
	assert.Equal(t, "example.com", domain)
}

func TestExtractJournalFields(t *testing.T) {
	domain, ok := dnsdomain.Extract("systemd-resolved: QUERY=example.com TYPE=A")
	assert.True(t, ok)
	assert.Equal(t, "example.com", domain)
}

func TestExtractInvalidDomainsRejected(t *testing.T) {
	_, ok := dnsdomain.Extract("Query from 192.168.1.100:54321: localhost IN A")
	assert.False(t, ok)

	_, ok = dnsdomain.Extract("Query from 192.168.1.100:54321: myhost.local IN A")
	assert.False(t, ok)
}

func TestExtractCaseInsensitive(t *testing.T) {
	domain, ok := dnsdomain.Extract("Query from 192.168.1.100:54321: EXAMPLE.COM IN A")
	assert.True(t, ok)
	assert.Equal(t, "example.com", domain)
}

func TestExtractEmptyLine(t *testing.T) {
	_, ok := dnsdomain.Extract("   ")
	assert.False(t, ok)
}

func TestValidRejectsOverlongDomain(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "abcdefgh."
	}
	long += "com"
	assert.False(t, dnsdomain.Valid(long))
}
