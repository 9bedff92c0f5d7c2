package logsource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoganBarnett/dns-smart-block/internal/logsource"
)

func TestFileSourceReadsExistingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolver.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := logsource.FileSource{Path: path, PollInterval: 20 * time.Millisecond}
	lines, errs := src.Lines(ctx)

	got := collectLines(t, lines, errs, 2)
	assert.Equal(t, []string{"line one", "line two"}, got)
}

func TestFileSourceFollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolver.log")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := logsource.FileSource{Path: path, PollInterval: 10 * time.Millisecond}
	lines, errs := src.Lines(ctx)

	require.Equal(t, "first", mustNext(t, lines, errs))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, "second", mustNext(t, lines, errs))
}

func mustNext(t *testing.T, lines <-chan string, errs <-chan error) string {
	t.Helper()
	select {
	case l := <-lines:
		return l
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
	}
	return ""
}

func collectLines(t *testing.T, lines <-chan string, errs <-chan error, n int) []string {
	t.Helper()
	var got []string
	for len(got) < n {
		select {
		case l, ok := <-lines:
			if !ok {
				t.Fatalf("lines closed early, got %v", got)
			}
			got = append(got, l)
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	return got
}
