package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/arena-escrow/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func join(t *testing.T, hub *Hub, room string) *Client {
	t.Helper()
	client := hub.NewClient(nil, room)
	before := hub.ClientsInRoom(room)
	hub.Register <- client
	deadline := time.Now().Add(time.Second)
	for hub.ClientsInRoom(room) == before {
		if time.Now().After(deadline) {
			t.Fatalf("client was not registered in %s", room)
		}
		time.Sleep(time.Millisecond)
	}
	return client
}

func receive(t *testing.T, c *Client) WebSocketMessage {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg WebSocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return WebSocketMessage{}
	}
}

func TestHubPublish(t *testing.T) {
	hub := startHub(t)
	lobby := join(t, hub, LobbyRoom)
	watcher := join(t, hub, MatchRoom(7))
	other := join(t, hub, MatchRoom(8))

	t.Run("Given a lobby event When published Then both the match room and the lobby receive it", func(t *testing.T) {
		hub.Publish(models.MatchEvent{Type: models.EventSlotJoined, Match: &models.Match{ID: 7}})
		if msg := receive(t, watcher); msg.Type != models.EventSlotJoined || msg.RoomID != "match_7" {
			t.Fatalf("unexpected match room message %+v", msg)
		}
		if msg := receive(t, lobby); msg.RoomID != LobbyRoom {
			t.Fatalf("unexpected lobby message %+v", msg)
		}
	})

	t.Run("Given a payout event When published Then the lobby does not receive it", func(t *testing.T) {
		hub.Publish(models.MatchEvent{Type: models.EventMatchFinalized, Match: &models.Match{ID: 7}})
		if msg := receive(t, watcher); msg.Type != models.EventMatchFinalized {
			t.Fatalf("unexpected message %+v", msg)
		}
		select {
		case raw := <-lobby.Send:
			t.Fatalf("lobby must not receive payout events, got %s", raw)
		case <-time.After(20 * time.Millisecond):
		}
	})

	if len(other.Send) != 0 {
		t.Fatal("unrelated room must not receive messages")
	}
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := startHub(t)
	client := join(t, hub, MatchRoom(1))
	hub.Unregister <- client

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
	if n := hub.ClientsInRoom(MatchRoom(1)); n != 0 {
		t.Fatalf("expected empty room, got %d", n)
	}
}
