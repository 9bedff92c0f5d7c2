// Package dnsdomain extracts and validates domain names out of DNS server
// log lines, shared between log-processor's extraction step and the
// classifier's input validation.
package dnsdomain

import (
	"regexp"
	"strings"
)

const labelPattern = `[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?`

var domainPattern = `(` + labelPattern + `(\.` + labelPattern + `)*)`

// patterns are tried in order, first match wins, mirroring dnsdist's query
// log, BIND's "client IP#port (domain)" form, a bare "query: domain" line,
// a loose "domain TYPE" form, and systemd-journal structured fields.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`Query from \S+: ` + domainPattern + ` IN`),
	regexp.MustCompile(`client \S+#\d+ \(` + domainPattern + `\)`),
	regexp.MustCompile(`query:\s+` + domainPattern),
	regexp.MustCompile(`\s` + domainPattern + `\s+(A|AAAA|NS|MX|TXT|CNAME)\s`),
	regexp.MustCompile(`(?:QUERY|DOMAIN)=` + domainPattern),
}

// Extract scans a single log line and returns the first domain any pattern
// recognizes and dnsdomain.Valid accepts, lowercased. ok is false if no
// pattern matched or the candidate failed validation.
func Extract(line string) (domain string, ok bool) {
	if strings.TrimSpace(line) == "" {
		return "", false
	}
	for _, re := range patterns {
		m := re.FindStringSubmatch(line)
		if len(m) < 2 {
			continue
		}
		candidate := m[1]
		if Valid(candidate) {
			return strings.ToLower(candidate), true
		}
	}
	return "", false
}

var localSuffixes = []string{".local", ".localhost", ".internal"}

// Valid reports whether domain is a plausible, publicly-routable DNS name:
// contains a dot, no leading/trailing '.' or '-', no whitespace, at most
// 253 characters, and not localhost or one of the reserved local
// TLD-like suffixes.
func Valid(domain string) bool {
	if !strings.Contains(domain, ".") {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") ||
		strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		return false
	}
	if len(domain) > 253 {
		return false
	}
	if strings.ContainsAny(domain, " \t\r\n") {
		return false
	}
	lower := strings.ToLower(domain)
	if lower == "localhost" {
		return false
	}
	for _, suffix := range localSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	return true
}
