package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ChannelClassificationCommitted is the Postgres LISTEN/NOTIFY channel the
// queue-processor notifies on after committing a classification, so
// blocklist-server can refresh its cached metrics without waiting for the
// next scrape interval.
const ChannelClassificationCommitted = "dns_smart_block_classification_committed"

// Listen starts listening on the specified channel using the dedicated
// notify connection, and records channel in listenChannels so a later
// reconnect can re-subscribe to it.
func (db *DB) Listen(ctx context.Context, channel string) error {
	db.notifyMu.Lock()
	defer db.notifyMu.Unlock()

	if db.notifyConn == nil {
		return fmt.Errorf("storage: notify connection not configured")
	}
	_, err := db.notifyConn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize())
	if err != nil {
		return fmt.Errorf("storage: listen %s: %w", channel, err)
	}

	for _, ch := range db.listenChannels {
		if ch == channel {
			return nil
		}
	}
	db.listenChannels = append(db.listenChannels, channel)
	return nil
}

// WaitForNotification blocks until a notification arrives on any listened
// channel. If the dedicated connection has dropped, it reconnects
// (re-subscribing to every tracked channel) and retries once before giving
// up.
func (db *DB) WaitForNotification(ctx context.Context) (channel, payload string, err error) {
	db.notifyMu.Lock()
	conn := db.notifyConn
	db.notifyMu.Unlock()

	if conn == nil {
		return "", "", fmt.Errorf("storage: notify connection not configured")
	}

	notification, err := conn.WaitForNotification(ctx)
	if err == nil {
		return notification.Channel, notification.Payload, nil
	}
	if ctx.Err() != nil {
		return "", "", fmt.Errorf("storage: wait for notification: %w", err)
	}

	db.notifyMu.Lock()
	reconnectErr := db.reconnectNotify(ctx)
	conn = db.notifyConn
	db.notifyMu.Unlock()
	if reconnectErr != nil {
		return "", "", fmt.Errorf("storage: wait for notification: %w (reconnect failed: %v)", err, reconnectErr)
	}

	notification, err = conn.WaitForNotification(ctx)
	if err != nil {
		return "", "", fmt.Errorf("storage: wait for notification after reconnect: %w", err)
	}
	return notification.Channel, notification.Payload, nil
}

// Notify sends a notification on the specified channel.
func (db *DB) Notify(ctx context.Context, channel, payload string) error {
	_, err := db.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, payload)
	if err != nil {
		return fmt.Errorf("storage: notify %s: %w", channel, err)
	}
	return nil
}
