package config

import (
	"errors"
	"flag"
	"time"
)

// Classifier holds cmd/classifier's configuration. Every field is settable
// by flag or by its mirroring env var; a flag value wins when both are given.
type Classifier struct {
	Domain             string
	OllamaURL          string
	OllamaModel        string
	PromptTemplatePath string
	ClassificationType string
	HTTPTimeout        time.Duration
	HTTPMaxKB          int
	LogLevel           string
}

// LoadClassifier parses args (normally os.Args[1:]) against flags seeded
// from the environment and returns a validated Classifier config.
func LoadClassifier(args []string) (Classifier, error) {
	fs := flag.NewFlagSet("classifier", flag.ContinueOnError)

	domain := stringFlag(fs, "domain", "DOMAIN", "")
	ollamaURL := stringFlag(fs, "ollama-url", "OLLAMA_URL", "http://localhost:11434")
	ollamaModel := stringFlag(fs, "ollama-model", "OLLAMA_MODEL", "llama3.2")
	promptTemplate := stringFlag(fs, "prompt-template", "PROMPT_TEMPLATE", "")
	classificationType := stringFlag(fs, "classification-type", "CLASSIFICATION_TYPE", "adult-content")
	logLevel := stringFlag(fs, "log-level", "LOG_LEVEL", "info")
	output := stringFlag(fs, "output", "OUTPUT", "json")

	var errs []error
	httpTimeoutSec, errs := collectInt(errs, "HTTP_TIMEOUT_SEC", 10)
	httpMaxKB, errs := collectInt(errs, "HTTP_MAX_KB", 256)

	httpTimeoutFlag := fs.Int("http-timeout-sec", httpTimeoutSec, "mirrors HTTP_TIMEOUT_SEC")
	httpMaxKBFlag := fs.Int("http-max-kb", httpMaxKB, "mirrors HTTP_MAX_KB")

	if err := fs.Parse(args); err != nil {
		return Classifier{}, err
	}
	if *output != "json" {
		return Classifier{}, errors.New(`config: --output/OUTPUT must be "json"`)
	}

	cfg := Classifier{
		Domain:             *domain,
		OllamaURL:          *ollamaURL,
		OllamaModel:        *ollamaModel,
		PromptTemplatePath: *promptTemplate,
		ClassificationType: *classificationType,
		HTTPTimeout:        time.Duration(*httpTimeoutFlag) * time.Second,
		HTTPMaxKB:          *httpMaxKBFlag,
		LogLevel:           *logLevel,
	}

	if len(errs) > 0 {
		return Classifier{}, joinErrs(errs)
	}
	return cfg, cfg.Validate()
}

// Validate checks required fields are present and sane.
func (c Classifier) Validate() error {
	var errs []error
	if c.Domain == "" {
		errs = append(errs, errors.New("config: --domain/DOMAIN is required"))
	}
	if c.PromptTemplatePath == "" {
		errs = append(errs, errors.New("config: --prompt-template/PROMPT_TEMPLATE is required"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("config: HTTP_TIMEOUT_SEC must be positive"))
	}
	if c.HTTPMaxKB <= 0 {
		errs = append(errs, errors.New("config: HTTP_MAX_KB must be positive"))
	}
	return errors.Join(errs...)
}
