package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubDeliversToTargetUserOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := &Client{userID: "alice", send: make(chan []byte, 1), hub: hub}
	bob := &Client{userID: "bob", send: make(chan []byte, 1), hub: hub}
	hub.register <- alice
	hub.register <- bob

	hub.NotifyUser("alice", "notification", map[string]string{"message": "hi"})

	select {
	case data := <-alice.send:
		var event struct {
			Type    string            `json:"type"`
			Payload map[string]string `json:"payload"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decoding event: %v", err)
		}
		if event.Type != "notification" || event.Payload["message"] != "hi" {
			t.Errorf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("alice never received the event")
	}

	select {
	case <-bob.send:
		t.Error("bob should not receive alice's notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubFanOutToMultipleConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := &Client{userID: "alice", send: make(chan []byte, 1), hub: hub}
	second := &Client{userID: "alice", send: make(chan []byte, 1), hub: hub}
	hub.register <- first
	hub.register <- second

	hub.NotifyUser("alice", "notification", map[string]string{"message": "hi"})

	for i, c := range []*Client{first, second} {
		select {
		case <-c.send:
		case <-time.After(time.Second):
			t.Fatalf("connection %d never received the event", i)
		}
	}
}

func TestHubDropsSlowClientAndKeepsDelivering(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// No capacity and no reader: the first delivery cannot be queued.
	slow := &Client{userID: "alice", send: make(chan []byte), hub: hub}
	hub.register <- slow

	hub.NotifyUser("alice", "notification", map[string]string{"message": "first"})
	hub.NotifyUser("alice", "notification", map[string]string{"message": "second"})

	deadline := time.Now().Add(time.Second)
	for hub.ConnectedUsers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client still registered after a full-buffer delivery")
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatal("expected a closed send channel, got a queued message")
		}
	default:
		t.Fatal("send channel not closed for the dropped client")
	}

	// The read pump of a dropped connection still unregisters on its way
	// out; that must not close the channel a second time.
	hub.unregister <- slow

	fresh := &Client{userID: "alice", send: make(chan []byte, 1), hub: hub}
	hub.register <- fresh
	hub.NotifyUser("alice", "notification", map[string]string{"message": "third"})

	select {
	case <-fresh.send:
	case <-time.After(time.Second):
		t.Fatal("hub stopped delivering after dropping a slow client")
	}
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{userID: "alice", send: make(chan []byte, 1), hub: hub}
	hub.register <- client
	hub.unregister <- client

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel closed, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}

	deadline := time.Now().Add(time.Second)
	for hub.ConnectedUsers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("user still counted after unregister")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
