// Command classifier fetches a single domain's page, asks a local Ollama
// model whether it matches a classification type, and prints one JSON
// document to stdout describing the result. It is spawned as a subprocess
// by cmd/queue-processor, once per message.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/LoganBarnett/dns-smart-block/internal/classify"
	"github.com/LoganBarnett/dns-smart-block/internal/config"
	"github.com/LoganBarnett/dns-smart-block/internal/dnsdomain"
)

func main() {
	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadClassifier(os.Args[1:])
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	_ = level.UnmarshalText([]byte(cfg.LogLevel)) // unknown values keep the info level

	if err := run(ctx, cfg); err != nil {
		slog.Error("classification failed", "domain", cfg.Domain, "error", err)
		os.Exit(0) // the result was already written to stdout as an error document
	}
}

func run(ctx context.Context, cfg config.Classifier) error {
	if !dnsdomain.Valid(cfg.Domain) {
		msg := "invalid_domain: " + cfg.Domain
		writeErr(cfg.Domain, classify.ErrDomainFetch, msg, nil)
		return fmt.Errorf("classifier: %s", msg)
	}

	tmpl, err := classify.LoadTemplate(cfg.PromptTemplatePath)
	if err != nil {
		writeErr(cfg.Domain, classify.ErrPromptFileRead, err.Error(), nil)
		return err
	}

	partial := &classify.PartialMetadata{Model: cfg.OllamaModel, PromptHash: tmpl.Hash}

	fetchResult, fetchErr := classify.Fetch(ctx, cfg.Domain, cfg.HTTPTimeout, cfg.HTTPMaxKB)
	var meta classify.PageMetadata
	httpStatus := 0
	if fetchErr != nil {
		errType := classifyFetchErrorType(fetchErr)
		if errType == classify.ErrDomainFetch || errType == classify.ErrDomainFetchTimeout {
			// Proceed with synthetic metadata so the model still gets a verdict.
			slog.Warn("fetch failed, classifying on the domain name alone",
				"domain", cfg.Domain, "error_type", errType, "error", fetchErr)
			meta = classify.FetchFailedMetadata()
		} else {
			writeErr(cfg.Domain, errType, fetchErr.Error(), partial)
			return fetchErr
		}
	} else {
		meta = classify.ExtractMetadata(fetchResult.Body)
		httpStatus = fetchResult.StatusCode
	}

	prompt, err := tmpl.Render(cfg.Domain, meta)
	if err != nil {
		writeErr(cfg.Domain, classify.ErrMetadataSerialization, err.Error(), partial)
		return err
	}

	httpClient := &http.Client{}
	verdict, genErr := classify.Generate(ctx, httpClient, cfg.OllamaURL, cfg.OllamaModel, prompt)
	if genErr != nil {
		errType, msg := classify.ErrorTypeOf(genErr)
		writeErr(cfg.Domain, errType, msg, partial)
		return genErr
	}

	if err := classify.WriteSuccess(os.Stdout, cfg.Domain, verdict, classify.Metadata{
		HTTPStatus: httpStatus,
		Model:      cfg.OllamaModel,
		PromptHash: tmpl.Hash,
	}); err != nil {
		return fmt.Errorf("classifier: write success output: %w", err)
	}
	return nil
}

// classifyFetchErrorType maps a timeout to ErrDomainFetchTimeout and every
// other fetch failure to ErrDomainFetch. Both get synthetic metadata and
// proceed to classification rather than aborting, so the distinction only
// matters for the warning the caller logs.
func classifyFetchErrorType(err error) classify.ErrorType {
	if classify.IsTimeoutError(err) {
		return classify.ErrDomainFetchTimeout
	}
	return classify.ErrDomainFetch
}

func writeErr(domain string, errType classify.ErrorType, message string, partial *classify.PartialMetadata) {
	if err := classify.WriteError(os.Stdout, domain, errType, message, partial); err != nil {
		slog.Error("failed to write error output", "error", err)
	}
}
