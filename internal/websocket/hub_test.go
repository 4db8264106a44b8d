package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, sessionID string) *Client {
	return &Client{
		hub:       hub,
		conn:      nil,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "a")
	c2 := mockClient(hub, "a")
	c3 := mockClient(hub, "b")

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount("a"); got != 2 {
		t.Fatalf("expected 2 clients in a, got %d", got)
	}
	if got := hub.ClientCount("b"); got != 1 {
		t.Fatalf("expected 1 client in b, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
	hub.Unregister(c3)

	if got := hub.ClientCount("a"); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "a")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount("a"); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastScopedToSession(t *testing.T) {
	hub := NewHub(slog.Default())

	mine := mockClient(hub, "a")
	other := mockClient(hub, "b")
	hub.Register(mine)
	hub.Register(other)

	hub.Broadcast("a", NewMessage(TypeFieldUpdated, 7, map[string]any{"key": "あなた.子どもがいる"}))

	got := receive(t, mine)
	if got.Type != TypeFieldUpdated {
		t.Errorf("type = %q, want %q", got.Type, TypeFieldUpdated)
	}
	if got.Revision != 7 {
		t.Errorf("revision = %d, want 7", got.Revision)
	}
	data, _ := got.Data.(map[string]any)
	if data["key"] != "あなた.子どもがいる" {
		t.Errorf("data = %v", got.Data)
	}

	select {
	case <-other.send:
		t.Error("message leaked to another session")
	default:
	}

	hub.Unregister(mine)
	hub.Unregister(other)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast("missing", NewMessage(TypeHouseholdUpdated, 1, nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "a")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast("a", NewMessage(TypeFieldUpdated, uint64(i+1), nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast("a", NewMessage(TypeFieldUpdated, 999, nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestCloseSession(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "a")
	hub.Register(c)

	hub.CloseSession("a")

	got := receive(t, c)
	if got.Type != TypeSessionEnded {
		t.Errorf("type = %q, want %q", got.Type, TypeSessionEnded)
	}
	if _, ok := <-c.send; ok {
		t.Error("expected send channel to be closed")
	}
	if hub.ClientCount("a") != 0 {
		t.Error("expected session clients to be removed")
	}

	// Run's deferred Unregister must not close the channel again.
	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "a")
			hub.Register(c)
			hub.Broadcast("a", NewMessage(TypeHouseholdUpdated, 1, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount("a"); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
