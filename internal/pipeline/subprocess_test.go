package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoganBarnett/dns-smart-block/internal/classify"
	"github.com/LoganBarnett/dns-smart-block/internal/pipeline"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-classifier.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

// TestRunClassifierDoesNotDeadlockOnLargeStderr is a regression test for the
// sequential-read deadlock the lifecycle spec explicitly warns about: if
// stdout and stderr aren't drained concurrently, a child writing more than
// one pipe buffer's worth to stderr while stdout sits small blocks forever.
func TestRunClassifierDoesNotDeadlockOnLargeStderr(t *testing.T) {
	script := writeScript(t, `
yes "x" | head -c 200000 1>&2
echo '{"domain":"example.com","result":"classified","classification":{"is_matching_site":true,"confidence":0.9},"metadata":{"http_status":200,"model":"llama3.2","prompt_hash":"sha256:abc"}}'
`)

	out, err := pipeline.RunClassifier(context.Background(), script, pipeline.ClassifierArgs{Domain: "example.com"}, nil)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "example.com", out.Domain)
}

func TestRunClassifierEmptyStdoutIsAnError(t *testing.T) {
	script := writeScript(t, `exit 0`)

	out, err := pipeline.RunClassifier(context.Background(), script, pipeline.ClassifierArgs{Domain: "example.com"}, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, classify.ErrMetadataSerialization, out.Error.ErrorType)
	assert.Equal(t, "classifier produced no output", out.Error.Message)
}

func TestRunClassifierDecodesErrorOutput(t *testing.T) {
	script := writeScript(t, `
echo '{"domain":"example.com","result":"error","error":{"error_type":"DomainFetchTimeoutError","message":"timed out"}}'
exit 1
`)

	out, err := pipeline.RunClassifier(context.Background(), script, pipeline.ClassifierArgs{Domain: "example.com"}, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, classify.ErrDomainFetchTimeout, out.Error.ErrorType)
}
