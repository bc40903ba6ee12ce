package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/mrniikke/fitness-challange/internal/app/models"
)

func TestClientForwardsChangesToHub(t *testing.T) {
	groupID := uuid.New()
	subscribed := make(chan Envelope, 4)
	authHeader := make(chan string, 4)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		subscribed <- env

		_ = conn.WriteJSON(Envelope{Type: EnvelopeHeartbeat})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("garbage"))
		ev := models.ChangeEvent{Table: models.TableGroupMembers, Type: models.ChangeInsert, GroupID: groupID, New: []byte(`{"user_id":"` + uuid.NewString() + `"}`)}
		_ = conn.WriteJSON(Envelope{Type: EnvelopeChange, Payload: &ev})

		// Hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	hub := NewHub(0, zerolog.Nop())
	defer hub.Close()
	var c collector
	hub.Subscribe(Filter{GroupID: groupID}, c.handle)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client := NewClient(url, "", "token-123", hub, Reconnect{Every: 10 * time.Millisecond, Burst: 1}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	got := c.waitFor(t, 1)
	assert.Equal(t, models.TableGroupMembers, got[0].Table)
	assert.Equal(t, "Bearer token-123", <-authHeader)
	env := <-subscribed
	assert.Equal(t, EnvelopeSubscribe, env.Type)
	assert.Equal(t, DefaultChannel, env.Channel)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancellation")
	}
}

func TestClientRunStopsWhileEndpointIsDown(t *testing.T) {
	hub := NewHub(0, zerolog.Nop())
	defer hub.Close()

	client := NewClient("ws://127.0.0.1:1/unreachable", "", "", hub, Reconnect{Every: 5 * time.Millisecond, Burst: 1}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, client.Run(ctx))
}
