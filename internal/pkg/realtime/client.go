package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mrniikke/fitness-challange/internal/app/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024
)

// Envelope types exchanged with the realtime endpoint
const (
	EnvelopeSubscribe = "subscribe"
	EnvelopeChange    = "change"
	EnvelopeHeartbeat = "heartbeat"
)

// Envelope is one websocket message of the realtime endpoint
type Envelope struct {
	Type    string              `json:"type"`
	Channel string              `json:"channel,omitempty"`
	Payload *models.ChangeEvent `json:"payload,omitempty"`
}

// Client reads row changes from a websocket realtime endpoint
type Client struct {
	url       string
	channel   string
	header    http.Header
	dialer    *websocket.Dialer
	publisher Publisher
	reconnect Reconnect
	logger    zerolog.Logger
}

// NewClient creates a websocket change-feed client. token, when set, is sent
// as a bearer credential.
func NewClient(url, channel, token string, publisher Publisher, reconnect Reconnect, logger zerolog.Logger) *Client {
	if channel == "" {
		channel = DefaultChannel
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &Client{
		url:       url,
		channel:   channel,
		header:    header,
		dialer:    &websocket.Dialer{HandshakeTimeout: writeWait},
		publisher: publisher,
		reconnect: reconnect,
		logger:    logger,
	}
}

// Run keeps a connection open until ctx is done
func (c *Client) Run(ctx context.Context) error {
	return keepAlive(ctx, c.reconnect, c.logger, c.session)
}

// session serves one connection until it fails or ctx is done
func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("failed to dial realtime endpoint: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Envelope{Type: EnvelopeSubscribe, Channel: c.channel}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.logger.Info().Str("url", c.url).Str("channel", c.channel).Msg("Connected to realtime endpoint")

	done := make(chan struct{})
	defer close(done)
	go c.keepPinging(conn, done)

	// Unblock the read below once ctx is done
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	return c.readPump(ctx, conn)
}

// readPump pumps change envelopes from the connection to the publisher
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().Msg("Realtime connection closed normally")
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Warn().Err(err).Str("message", string(message)).Msg("Failed to unmarshal realtime message")
			continue
		}
		if env.Type != EnvelopeChange || env.Payload == nil {
			continue
		}

		raw, _ := json.Marshal(env.Payload)
		ev, err := DecodeNotification(raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed change")
			continue
		}
		if err := c.publisher.Publish(ctx, ev); err != nil {
			return err
		}
	}
}

// keepPinging sends pings to the peer until done is closed
func (c *Client) keepPinging(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
