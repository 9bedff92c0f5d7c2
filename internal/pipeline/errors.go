package pipeline

import "strings"

// permanentMarkers are substrings of a classifier error message that mark
// the failure as permanent — retrying will never succeed, so the message
// is acknowledged (not nak'd) without a redelivery.
var permanentMarkers = []string{
	"dns_resolution_failed",
	"invalid_domain",
	"http_fetch_failed: 404",
	"http_fetch_failed: 403",
}

// IsPermanentError reports whether msg matches one of the error taxonomy's
// permanent markers.
func IsPermanentError(msg string) bool {
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
