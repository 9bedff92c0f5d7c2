// Command log-processor tails DNS resolver logs, extracts candidate
// domains, dedups them, and publishes the new ones for classification.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/LoganBarnett/dns-smart-block/internal/config"
	"github.com/LoganBarnett/dns-smart-block/internal/dedup"
	"github.com/LoganBarnett/dns-smart-block/internal/dnsdomain"
	"github.com/LoganBarnett/dns-smart-block/internal/eventstore"
	"github.com/LoganBarnett/dns-smart-block/internal/logsource"
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

	cfg, err := config.LoadLogProcessor(os.Args[1:])
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

func run(ctx context.Context, cfg config.LogProcessor, logger *slog.Logger) error {
	logger.Info("log-processor starting",
		"classification_type", cfg.ClassificationType,
		"log_path", cfg.LogPath,
		"log_command", cfg.LogCommand,
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

	publisher := queue.NewPublisher(nc, cfg.NATSSubject)
	resolver := logsource.NewResolverClient(cfg.ResolverAPIURL, logger)

	var source logsource.Source
	if cfg.LogPath != "" {
		source = logsource.FileSource{Path: cfg.LogPath}
	} else {
		source = logsource.CommandSource{Argv: splitCommand(cfg.LogCommand), Logger: logger}
	}

	w := &worker{
		store:              store,
		publisher:          publisher,
		resolver:           resolver,
		classificationType: cfg.ClassificationType,
		dedup:              dedup.New(),
		logger:             logger,
	}

	lines, errs := source.Lines(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			w.processLine(ctx, line)
		case err, ok := <-errs:
			if !ok {
				continue
			}
			return fmt.Errorf("log source: %w", err)
		}
	}
}

type worker struct {
	store              *eventstore.Store
	publisher          *queue.Publisher
	resolver           *logsource.ResolverClient
	classificationType string
	dedup              *dedup.Set
	logger             *slog.Logger
}

func (w *worker) processLine(ctx context.Context, line string) {
	domain, ok := dnsdomain.Extract(line)
	if !ok {
		return
	}

	if w.dedup.SeenOrAdd(domain) {
		return
	}

	if w.resolver.AlreadyBlocked(ctx, domain) {
		w.logger.Debug("domain already blocked, skipping", "domain", domain)
		return
	}

	shouldQueue, err := w.shouldQueue(ctx, domain)
	if err != nil {
		w.logger.Error("lifecycle lookup failed", "domain", domain, "error", err)
		return
	}
	if !shouldQueue {
		return
	}

	if err := w.store.AppendEvent(ctx, domain, eventstore.ActionQueued, nil); err != nil {
		w.logger.Error("append queued event failed", "domain", domain, "error", err)
		return
	}

	if err := w.publisher.Publish(ctx, domain); err != nil {
		w.logger.Error("publish failed", "domain", domain, "error", err)
		return
	}

	w.logger.Info("queued domain for classification", "domain", domain)
}

// shouldQueue implements the cross-process half of the dedup decision: a
// domain already queued, classifying, or still validly classified, or whose
// latest event is an error of any kind, is not queued again.
func (w *worker) shouldQueue(ctx context.Context, domain string) (bool, error) {
	latest, err := w.store.LatestEvent(ctx, domain)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return true, nil
	}
	switch latest.Action {
	case eventstore.ActionQueued, eventstore.ActionClassifying, eventstore.ActionError:
		return false, nil
	case eventstore.ActionClassified:
		valid, err := w.store.HasValidClassification(ctx, domain, w.classificationType, time.Now().UTC())
		if err != nil {
			return false, err
		}
		return !valid, nil
	default:
		return true, nil
	}
}

func splitCommand(command string) []string {
	return []string{"/bin/sh", "-c", command}
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
