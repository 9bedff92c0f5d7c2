package classify

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteSuccess encodes a SuccessOutput as the single JSON document on w.
func WriteSuccess(w io.Writer, domain string, c Classification, m Metadata) error {
	return json.NewEncoder(w).Encode(SuccessOutput{
		Domain:         domain,
		Result:         "classified",
		Classification: c,
		Metadata:       m,
	})
}

// WriteError encodes an ErrorOutput as the single JSON document on w.
func WriteError(w io.Writer, domain string, errType ErrorType, message string, partial *PartialMetadata) error {
	return json.NewEncoder(w).Encode(ErrorOutput{
		Domain:   domain,
		Result:   "error",
		Error:    ErrorInfo{ErrorType: errType, Message: message},
		Metadata: partial,
	})
}

// discriminator reads only the "result" field to decide which shape to
// decode the rest of the document as.
type discriminator struct {
	Result string `json:"result"`
}

// Decode parses a classifier's stdout document, dispatching on its "result"
// field. An empty or malformed document returns an error; internal/pipeline's
// RunClassifier reports such output as a MetadataSerializationError, since
// empty stdout is a classifier error in its own right.
func Decode(data []byte) (Output, error) {
	if len(data) == 0 {
		return Output{}, fmt.Errorf("classify: empty output")
	}

	var disc discriminator
	if err := json.Unmarshal(data, &disc); err != nil {
		return Output{}, fmt.Errorf("classify: decode result discriminator: %w", err)
	}

	switch disc.Result {
	case "classified":
		var s SuccessOutput
		if err := json.Unmarshal(data, &s); err != nil {
			return Output{}, fmt.Errorf("classify: decode success output: %w", err)
		}
		return Output{
			Domain:         s.Domain,
			Success:        true,
			Classification: s.Classification,
			Metadata:       s.Metadata,
		}, nil
	case "error":
		var e ErrorOutput
		if err := json.Unmarshal(data, &e); err != nil {
			return Output{}, fmt.Errorf("classify: decode error output: %w", err)
		}
		out := Output{
			Domain:  e.Domain,
			Success: false,
			Error:   e.Error,
		}
		if e.Metadata != nil {
			out.Metadata = Metadata{Model: e.Metadata.Model, PromptHash: e.Metadata.PromptHash}
		}
		return out, nil
	default:
		return Output{}, fmt.Errorf("classify: unrecognized result discriminator %q", disc.Result)
	}
}
