package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialSubscriber connects a websocket client that the hub serves for the
// given trip.
func dialSubscriber(t *testing.T, hub *Hub, tripID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Subscribe(tripID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Wait for the subscription to register before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(tripID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHubPublishReachesTripSubscribersOnly(t *testing.T) {
	hub := NewHub()

	sub := dialSubscriber(t, hub, "trip-a")
	other := dialSubscriber(t, hub, "trip-b")

	hub.Publish("trip-a", EventPaymentUpdated, map[string]any{"amount": 100.0})

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := sub.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if msg.Event != EventPaymentUpdated || msg.TripID != "trip-a" {
		t.Errorf("got %s/%s, want payment.updated/trip-a", msg.Event, msg.TripID)
	}

	// The other trip's channel stays quiet.
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := other.ReadJSON(&msg); err == nil {
		t.Errorf("trip-b subscriber received %s event for trip-a", msg.Event)
	}
}

func TestHubPublishNeverBlocksWithoutSubscribers(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish("empty-trip", EventWithdrawalVote, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no subscribers")
	}
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	hub := NewHub()
	conn := dialSubscriber(t, hub, "trip-c")

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("trip-c") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed subscriber never unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Publishing after disconnect is a no-op.
	hub.Publish("trip-c", EventMemberJoined, nil)
}
