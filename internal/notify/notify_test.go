package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterWatcherRoundTrip(t *testing.T) {
	dataPath := t.TempDir()
	writer := NewEventWriter(dataPath)

	received := make(chan Event, 10)
	watcher := NewEventWatcher(dataPath, func(e Event) { received <- e })
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, writer.Notify(Event{
		Type:      EventDocumentIndexed,
		ScopeID:   "scope-1",
		SubjectID: "chapters/one.md",
	}))

	select {
	case event := <-received:
		assert.Equal(t, EventDocumentIndexed, event.Type)
		assert.Equal(t, "chapters/one.md", event.SubjectID)
		assert.Equal(t, "scope-1", event.ScopeID)
		assert.NotZero(t, event.Time)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatcherDrainsExistingEvents(t *testing.T) {
	dataPath := t.TempDir()
	writer := NewEventWriter(dataPath)

	// Events written before the watcher starts must still be delivered.
	require.NoError(t, writer.Notify(Event{Type: EventEntityDetected, SubjectID: "elena"}))
	require.NoError(t, writer.Notify(Event{Type: EventDriftAlert, SubjectID: "chunk-9"}))

	received := make(chan Event, 10)
	watcher := NewEventWatcher(dataPath, func(e Event) { received <- e })
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	types := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case event := <-received:
			types[event.Type] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timed out draining events")
		}
	}
	assert.True(t, types[EventEntityDetected])
	assert.True(t, types[EventDriftAlert])
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &fakeClient{send: make(chan []byte, 4)}
	hub.register <- client

	hub.Broadcast(Event{Type: EventAuditCompleted, SubjectID: "chapters/two.md"})

	select {
	case data := <-client.send:
		assert.Contains(t, string(data), EventAuditCompleted)
		assert.Contains(t, string(data), "chapters/two.md")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	// Zero-capacity channel: the first broadcast cannot be delivered.
	slow := &fakeClient{send: make(chan []byte)}
	hub.register <- slow

	hub.Broadcast(Event{Type: EventDriftAlert, SubjectID: "chunk-1"})

	assert.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

// A client goroutine handing itself back after the hub stopped must not
// block forever on the undrained unregister channel.
func TestHubDropAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := &fakeClient{send: make(chan []byte, 4)}
	hub.register <- client

	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.drop(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("drop blocked after hub stop")
	}
}

type fakeClient struct {
	send chan []byte
}

func (f *fakeClient) sendChannel() chan []byte { return f.send }
func (f *fakeClient) shutdown()                {}
