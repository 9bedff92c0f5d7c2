// Command queue-processor consumes domain messages from a durable NATS
// JetStream subscription and drives each domain through the classification
// lifecycle, spawning cmd/classifier once per message.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/LoganBarnett/dns-smart-block/internal/classify"
	"github.com/LoganBarnett/dns-smart-block/internal/config"
	"github.com/LoganBarnett/dns-smart-block/internal/eventstore"
	"github.com/LoganBarnett/dns-smart-block/internal/pipeline"
	"github.com/LoganBarnett/dns-smart-block/internal/queue"
	"github.com/LoganBarnett/dns-smart-block/internal/storage"
	"github.com/LoganBarnett/dns-smart-block/internal/telemetry"
	"github.com/LoganBarnett/dns-smart-block/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()

	cfg, err := config.LoadQueueProcessor(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.QueueProcessor, logger *slog.Logger) error {
	logger.Info("queue-processor starting",
		"classification_type", cfg.ClassificationType,
		"nats_url", cfg.NATSURL,
		"database_url", cfg.DatabaseURLSanitized,
	)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	db, err := storage.New(ctx, cfg.DatabaseURL, "", logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close(ctx)

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	store := eventstore.New(db)

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}

	if err := queue.EnsureStream(ctx, js, queue.DefaultStreamName, cfg.NATSSubject); err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	consumer, err := queue.NewDurableConsumer(ctx, js, queue.DefaultStreamName, cfg.NATSSubject, cfg.ClassificationType, cfg.MaxAckPending)
	if err != nil {
		return fmt.Errorf("durable consumer: %w", err)
	}

	proc := &processor{store: store, db: db, cfg: cfg, logger: logger}

	if err := queue.PullLoop(ctx, consumer, proc.handle); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

type processor struct {
	store  *eventstore.Store
	db     *storage.DB
	cfg    config.QueueProcessor
	logger *slog.Logger
}

func (p *processor) handle(ctx context.Context, msg jetstream.Msg) {
	var payload queue.Message
	if err := json.Unmarshal(msg.Data(), &payload); err != nil || payload.Domain == "" {
		p.logger.Warn("terminating poison message", "error", err)
		_ = msg.Term()
		return
	}
	domain := payload.Domain

	latest, err := p.store.LatestEvent(ctx, domain)
	if err != nil {
		p.logger.Error("latest event lookup failed", "domain", domain, "error", err)
		_ = msg.Nak()
		return
	}

	hasValid, err := p.store.HasValidClassification(ctx, domain, p.cfg.ClassificationType, time.Now().UTC())
	if err != nil {
		p.logger.Error("valid classification lookup failed", "domain", domain, "error", err)
		_ = msg.Nak()
		return
	}

	if pipeline.NextAction(latest, hasValid) == pipeline.DecisionSkip {
		p.logger.Debug("skipping domain, already handled", "domain", domain)
		_ = msg.Ack()
		return
	}

	if err := p.store.AppendEvent(ctx, domain, eventstore.ActionClassifying, nil); err != nil {
		p.logger.Error("append classifying event failed", "domain", domain, "error", err)
		_ = msg.Nak()
		return
	}

	out, runErr := pipeline.RunClassifier(ctx, p.cfg.ClassifierBin, pipeline.ClassifierArgs{
		Domain:             domain,
		OllamaURL:          p.cfg.OllamaURL,
		OllamaModel:        p.cfg.OllamaModel,
		PromptTemplatePath: p.cfg.PromptTemplatePath,
		ClassificationType: p.cfg.ClassificationType,
		HTTPTimeoutSec:     p.cfg.HTTPTimeoutSec,
		HTTPMaxKB:          p.cfg.HTTPMaxKB,
	}, p.logger)
	if runErr != nil {
		p.logger.Error("classifier invocation failed", "domain", domain, "error", runErr)
		p.handleFailure(ctx, msg, domain, runErr.Error())
		return
	}

	if !out.Success {
		p.handleFailure(ctx, msg, domain, out.Error.Message)
		return
	}

	p.handleSuccess(ctx, msg, out)
}

// classifiedEventData is the action_data shape recorded for a classified
// event: the LLM verdict plus the classification_type it was judged
// against and the HTTP status the page fetch returned.
type classifiedEventData struct {
	IsMatchingSite     bool    `json:"is_matching_site"`
	Confidence         float64 `json:"confidence"`
	ClassificationType string  `json:"classification_type"`
	HTTPStatus         int     `json:"http_status"`
}

func (p *processor) handleSuccess(ctx context.Context, msg jetstream.Msg, out classify.Output) {
	domain := out.Domain

	eventData := classifiedEventData{
		IsMatchingSite:     out.Classification.IsMatchingSite,
		Confidence:         out.Classification.Confidence,
		ClassificationType: p.cfg.ClassificationType,
		HTTPStatus:         out.Metadata.HTTPStatus,
	}
	if err := p.store.AppendEvent(ctx, domain, eventstore.ActionClassified, eventData); err != nil {
		p.logger.Error("append classified event failed", "domain", domain, "error", err)
		_ = msg.Nak()
		return
	}

	if out.Classification.IsMatchingSite && out.Classification.Confidence >= p.cfg.MinConfidence {
		templateBytes, err := os.ReadFile(p.cfg.PromptTemplatePath)
		if err != nil {
			p.logger.Error("prompt template read failed", "domain", domain, "error", err)
			_ = msg.Nak()
			return
		}

		err = p.store.CommitClassification(ctx, eventstore.CommitClassificationParams{
			Domain:             domain,
			ClassificationType: p.cfg.ClassificationType,
			Confidence:         float32(out.Classification.Confidence),
			Model:              out.Metadata.Model,
			PromptContent:      string(templateBytes),
			PromptHash:         classify.HashTemplateBytes(templateBytes),
			TTLDays:            p.cfg.TTLDays,
		})
		if err != nil {
			p.logger.Error("commit classification failed", "domain", domain, "error", err)
			_ = msg.Nak()
			return
		}

		if err := p.db.Notify(ctx, storage.ChannelClassificationCommitted, domain); err != nil {
			p.logger.Warn("classification committed notify failed", "domain", domain, "error", err)
		}
	}

	_ = msg.Ack()
}

func (p *processor) handleFailure(ctx context.Context, msg jetstream.Msg, domain, message string) {
	if err := p.store.AppendEvent(ctx, domain, eventstore.ActionError, map[string]string{"error": message}); err != nil {
		p.logger.Error("append error event failed", "domain", domain, "error", err)
		_ = msg.Nak()
		return
	}

	if pipeline.IsPermanentError(message) {
		p.logger.Info("permanent classification error, not retrying", "domain", domain, "error", message)
		_ = msg.Ack()
		return
	}

	count, err := p.store.ConsecutiveErrorCount(ctx, domain)
	if err != nil {
		p.logger.Error("consecutive error count lookup failed", "domain", domain, "error", err)
		_ = msg.Nak()
		return
	}
	if count >= 3 {
		p.logger.Warn("circuit open after consecutive errors, acking without retry", "domain", domain, "count", count)
		_ = msg.Ack()
		return
	}
	_ = msg.Nak()
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
