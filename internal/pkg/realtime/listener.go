package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
)

// DefaultChannel is the notification channel fed by the row-change trigger
const DefaultChannel = "row_changes"

// DecodeNotification parses a row-change payload
func DecodeNotification(payload []byte) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("invalid change payload: %w", err)
	}
	if ev.Table == "" || ev.GroupID == uuid.Nil {
		return models.ChangeEvent{}, fmt.Errorf("change payload without table or group")
	}
	switch ev.Type {
	case models.ChangeInsert, models.ChangeUpdate, models.ChangeDelete:
	default:
		return models.ChangeEvent{}, fmt.Errorf("unknown change type %q", ev.Type)
	}
	return ev, nil
}

// Listener forwards Postgres notifications to a Publisher
type Listener struct {
	pool      *pgxpool.Pool
	channel   string
	publisher Publisher
	reconnect Reconnect
	logger    zerolog.Logger
}

// NewListener creates a listener on channel (DefaultChannel when empty)
func NewListener(pool *pgxpool.Pool, channel string, publisher Publisher, reconnect Reconnect, logger zerolog.Logger) *Listener {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Listener{
		pool:      pool,
		channel:   channel,
		publisher: publisher,
		reconnect: reconnect,
		logger:    logger,
	}
}

// Run listens until ctx is done, reconnecting after connection failures
func (l *Listener) Run(ctx context.Context) error {
	return keepAlive(ctx, l.reconnect, l.logger, l.listen)
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.logger.Info().Str("channel", l.channel).Msg("Listening for row changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("failed waiting for notification: %w", err)
		}

		ev, err := DecodeNotification([]byte(n.Payload))
		if err != nil {
			l.logger.Warn().Err(err).Str("channel", n.Channel).Msg("Skipping malformed notification")
			continue
		}
		if err := l.publisher.Publish(ctx, ev); err != nil {
			return err
		}
	}
}
