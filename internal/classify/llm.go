package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// generateRequest is the request body for POST /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Stream bool   `json:"stream"`
}

// generateResponse is Ollama's envelope; Response is itself a JSON string
// containing the classification, since format:"json" only constrains the
// inner generation, not the outer envelope.
type generateResponse struct {
	Response string `json:"response"`
}

// Generate calls Ollama's /api/generate with the rendered prompt and parses
// the model's JSON verdict out of the response envelope.
//
// No additional timeout is layered on top of httpClient's own transport
// timeout here — this mirrors an explicit open question in the source
// material about the LLM call having no request deadline of its own.
func Generate(ctx context.Context, httpClient *http.Client, baseURL, model, prompt string) (Classification, error) {
	reqBody, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: prompt,
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("classify: marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return Classification{}, fmt.Errorf("classify: build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Classification{}, classifyErr{ErrOllamaApiTimeout, err.Error()}
		}
		return Classification{}, classifyErr{ErrOllamaApiConnection, err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Classification{}, classifyErr{ErrOllamaApi, fmt.Sprintf("status %d: %s", resp.StatusCode, body)}
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Classification{}, classifyErr{ErrOllamaResponseParse, err.Error()}
	}

	var c Classification
	if err := json.Unmarshal([]byte(envelope.Response), &c); err != nil {
		return Classification{}, classifyErr{ErrClassificationParse, err.Error()}
	}
	return c, nil
}

// classifyErr carries the ErrorType a failure should map to alongside the
// underlying message, so cmd/classifier doesn't need to re-derive the
// taxonomy from scratch at the call site.
type classifyErr struct {
	errType ErrorType
	message string
}

func (e classifyErr) Error() string { return e.message }

// ErrorTypeOf extracts the ErrorType embedded by this package's functions,
// falling back to a generic DomainFetchError for anything else.
func ErrorTypeOf(err error) (ErrorType, string) {
	var ce classifyErr
	if errors.As(err, &ce) {
		return ce.errType, ce.message
	}
	return ErrDomainFetch, err.Error()
}
