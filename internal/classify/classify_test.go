package classify_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoganBarnett/dns-smart-block/internal/classify"
)

func TestExtractMetadata(t *testing.T) {
	html := []byte(`<html lang="en"><head>
		<title>Example Site</title>
		<meta name="description" content="An example page.">
		<meta property="og:title" content="Example OG Title">
	</head><body></body></html>`)

	m := classify.ExtractMetadata(html)
	assert.Equal(t, "Example Site", m.Title)
	assert.Equal(t, "An example page.", m.Description)
	assert.Equal(t, "Example OG Title", m.OGTitle)
	assert.Equal(t, "en", m.Lang)
	assert.False(t, m.FetchFailed)
}

func TestExtractMetadataEmptyPage(t *testing.T) {
	m := classify.ExtractMetadata([]byte(`<html></html>`))
	assert.Empty(t, m.Title)
	assert.Empty(t, m.Description)
	assert.Empty(t, m.Lang)
	assert.False(t, m.FetchFailed)
}

func TestFetchFailedMetadataRenders(t *testing.T) {
	m := classify.FetchFailedMetadata()
	assert.True(t, m.FetchFailed)
	assert.Empty(t, m.Title)
}

func TestTemplateRenderSubstitutesInputJSON(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prompt.txt"
	require.NoError(t, os.WriteFile(path, []byte("classify: {{INPUT_JSON}}"), 0o644))

	tmpl, err := classify.LoadTemplate(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tmpl.Hash, "sha256:"))

	rendered, err := tmpl.Render("example.com", classify.PageMetadata{Title: "Example"})
	require.NoError(t, err)
	assert.Contains(t, rendered, `"domain":"example.com"`)
	assert.Contains(t, rendered, `"title":"Example"`)
	assert.NotContains(t, rendered, "{{INPUT_JSON}}")

	rawHash := classify.HashTemplateBytes([]byte("classify: {{INPUT_JSON}}"))
	assert.Equal(t, rawHash, tmpl.Hash)
}

func TestWriteAndDecodeSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, classify.WriteSuccess(&buf, "example.com",
		classify.Classification{IsMatchingSite: true, Confidence: 0.91},
		classify.Metadata{HTTPStatus: 200, Model: "llama3.2", PromptHash: "sha256:abc"}))

	out, err := classify.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "example.com", out.Domain)
	assert.True(t, out.Classification.IsMatchingSite)
	assert.InDelta(t, 0.91, out.Classification.Confidence, 0.0001)
}

func TestWriteAndDecodeError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, classify.WriteError(&buf, "example.com", classify.ErrDomainFetchTimeout, "timed out", nil))

	out, err := classify.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, classify.ErrDomainFetchTimeout, out.Error.ErrorType)
}

func TestDecodeEmptyOutputIsAnError(t *testing.T) {
	_, err := classify.Decode(nil)
	require.Error(t, err)
}

func TestDecodeUnrecognizedDiscriminator(t *testing.T) {
	_, err := classify.Decode([]byte(`{"domain":"x","result":"maybe"}`))
	require.Error(t, err)
}
