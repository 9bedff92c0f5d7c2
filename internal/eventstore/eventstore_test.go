package eventstore_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/LoganBarnett/dns-smart-block/internal/classify"
	"github.com/LoganBarnett/dns-smart-block/internal/eventstore"
	"github.com/LoganBarnett/dns-smart-block/internal/storage"
	"github.com/LoganBarnett/dns-smart-block/migrations"
)

var testStore *eventstore.Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "dns_smart_block",
			"POSTGRES_PASSWORD": "dns_smart_block",
			"POSTGRES_DB":       "dns_smart_block",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("postgres://dns_smart_block:dns_smart_block@%s:%s/dns_smart_block?sslmode=disable", host, port.Port())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := storage.New(ctx, dsn, "", logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		os.Exit(1)
	}

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	testStore = eventstore.New(db)
	os.Exit(m.Run())
}

func TestAppendEventAndLatestEvent(t *testing.T) {
	ctx := context.Background()
	domain := "example-append.test"

	latest, err := testStore.LatestEvent(ctx, domain)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, testStore.AppendEvent(ctx, domain, eventstore.ActionQueued, nil))
	require.NoError(t, testStore.AppendEvent(ctx, domain, eventstore.ActionClassifying, nil))

	latest, err = testStore.LatestEvent(ctx, domain)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, eventstore.ActionClassifying, latest.Action)
}

func TestConsecutiveErrorCount(t *testing.T) {
	ctx := context.Background()
	domain := "example-errors.test"

	require.NoError(t, testStore.AppendEvent(ctx, domain, eventstore.ActionQueued, nil))
	require.NoError(t, testStore.AppendEvent(ctx, domain, eventstore.ActionError, map[string]string{"error": "dns_resolution_failed"}))
	require.NoError(t, testStore.AppendEvent(ctx, domain, eventstore.ActionError, map[string]string{"error": "timeout"}))

	count, err := testStore.ConsecutiveErrorCount(ctx, domain)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, testStore.AppendEvent(ctx, domain, eventstore.ActionQueued, nil))
	count, err = testStore.ConsecutiveErrorCount(ctx, domain)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCommitClassificationAndDomainsValidAt(t *testing.T) {
	ctx := context.Background()
	domain := "example-commit.test"

	err := testStore.CommitClassification(ctx, eventstore.CommitClassificationParams{
		Domain:             domain,
		ClassificationType: "adult-content",
		Confidence:         0.95,
		Model:              "llama3.2",
		PromptContent:      "classify " + domain,
		PromptHash:         classify.HashTemplateBytes([]byte("classify " + domain)),
		TTLDays:            10,
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	domains, err := testStore.DomainsValidAt(ctx, "adult-content", now)
	require.NoError(t, err)
	assert.Contains(t, domains, domain)

	valid, err := testStore.HasValidClassification(ctx, domain, "adult-content", now)
	require.NoError(t, err)
	assert.True(t, valid)

	past := now.Add(-24 * time.Hour)
	valid, err = testStore.HasValidClassification(ctx, domain, "adult-content", past.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestCommitClassificationDedupsPromptByHash(t *testing.T) {
	ctx := context.Background()
	sharedPrompt := "identical prompt content for dedup test"
	sharedHash := classify.HashTemplateBytes([]byte(sharedPrompt))

	for i, domain := range []string{"dedup-a.test", "dedup-b.test"} {
		err := testStore.CommitClassification(ctx, eventstore.CommitClassificationParams{
			Domain:             domain,
			ClassificationType: "adult-content",
			Confidence:         float32(i),
			Model:              "llama3.2",
			PromptContent:      sharedPrompt,
			PromptHash:         sharedHash,
			TTLDays:            1,
		})
		require.NoError(t, err)
	}

	var promptRowCount int
	require.NoError(t, testStore.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM prompts WHERE hash = $1`, sharedHash,
	).Scan(&promptRowCount))
	assert.Equal(t, 1, promptRowCount)
}
