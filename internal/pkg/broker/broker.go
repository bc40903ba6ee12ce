// Package broker hands push messages to a message broker. Delivery to
// devices happens downstream and is not this module's concern.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// PushMessage is the body handed to the push pipeline
type PushMessage struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	GroupID   uuid.UUID `json:"group_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher publishes push messages
type Publisher interface {
	PublishPush(ctx context.Context, msg PushMessage) error
}

// Nop discards every message
type Nop struct{}

// PublishPush does nothing
func (Nop) PublishPush(context.Context, PushMessage) error { return nil }

// Recorder keeps published messages in memory
type Recorder struct {
	mu       sync.Mutex
	messages []PushMessage
}

// PublishPush records msg
func (r *Recorder) PublishPush(_ context.Context, msg PushMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of the recorded messages
func (r *Recorder) Messages() []PushMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PushMessage(nil), r.messages...)
}

// AMQPConfig configures the AMQP publisher
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// AMQPPublisher publishes push messages to a durable topic exchange with
// publisher confirms.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	config   AMQPConfig
	logger   zerolog.Logger
}

// NewAMQPPublisher connects to the broker and declares the exchange
func NewAMQPPublisher(config AMQPConfig, logger zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		config.Exchange,
		amqp.ExchangeTopic,
		true,  // Durable
		false, // Delete when unused
		false, // Internal
		false, // No-wait
		nil,   // Arguments
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	notifyClose := make(chan *amqp.Error, 1)
	conn.NotifyClose(notifyClose)
	go func() {
		if err := <-notifyClose; err != nil {
			logger.Error().Err(err).Msg("Broker connection closed")
		}
	}()

	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		config:   config,
		logger:   logger,
	}, nil
}

// PublishPush publishes msg and waits for the broker's confirmation
func (p *AMQPPublisher) PublishPush(ctx context.Context, msg PushMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode push message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(p.config.Exchange, p.config.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.CreatedAt,
		Type:         msg.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish push message: %w", err)
	}

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			return fmt.Errorf("broker channel closed before confirming")
		}
		if !confirm.Ack {
			return fmt.Errorf("broker rejected push message %s", msg.ID)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	p.logger.Debug().Str("messageID", msg.ID).Str("routingKey", p.config.RoutingKey).Msg("Push message handed to broker")
	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to close broker channel")
	}
	return p.conn.Close()
}
