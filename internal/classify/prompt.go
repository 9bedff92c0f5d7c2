package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Template holds a loaded prompt template: its raw bytes (whose hash is the
// prompt's content-addressed identity) and a renderer that substitutes the
// per-domain metadata.
type Template struct {
	raw  string
	Hash string // "sha256:<hex>" of the raw template bytes, unrendered.
}

// LoadTemplate reads the prompt template from path. The hash is computed
// over the template file's bytes, not the rendered prompt — Queue-Processor
// computes the identical hash over the same file so both sides agree on
// the prompt's identity without exchanging the rendered text.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("classify: read prompt template: %w", err)
	}
	return Template{raw: string(data), Hash: HashTemplateBytes(data)}, nil
}

// HashTemplateBytes computes the prompt's content-addressed identity from
// raw template bytes, without requiring a file read — used by
// queue-processor, which holds the template path but not necessarily the
// rendered text.
func HashTemplateBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// inputJSON is the {{INPUT_JSON}} substitution: domain plus whatever
// metadata the fetch/extract step produced.
type inputJSON struct {
	Domain        string `json:"domain"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	OGTitle       string `json:"og_title,omitempty"`
	OGDescription string `json:"og_description,omitempty"`
	OGSiteName    string `json:"og_site_name,omitempty"`
	Lang          string `json:"lang,omitempty"`
	FetchFailed   bool   `json:"fetch_failed,omitempty"`
}

// Render substitutes {{INPUT_JSON}} in the template with the JSON-encoded
// metadata object for domain.
func (t Template) Render(domain string, m PageMetadata) (string, error) {
	payload := inputJSON{
		Domain:        domain,
		Title:         m.Title,
		Description:   m.Description,
		OGTitle:       m.OGTitle,
		OGDescription: m.OGDescription,
		OGSiteName:    m.OGSiteName,
		Lang:          m.Lang,
		FetchFailed:   m.FetchFailed,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("classify: marshal input json: %w", err)
	}
	return strings.ReplaceAll(t.raw, "{{INPUT_JSON}}", string(b)), nil
}
