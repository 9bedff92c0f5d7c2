// Package logsource tails DNS resolver logs from a file or a long-running
// command, handing cmd/log-processor a stream of raw lines to extract
// candidate domains from.
package logsource

import "context"

// Source yields log lines as they arrive. The lines channel is closed when
// tailing stops (ctx canceled or an unrecoverable error); a single error,
// if any, is sent on errs before lines closes.
type Source interface {
	Lines(ctx context.Context) (<-chan string, <-chan error)
}
