package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeWire records writes in memory so router fan-out can be asserted
// without a network socket.
type fakeWire struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeWire) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	f.mu.Lock()
	buf := make([]byte, len(data))
	copy(buf, data)
	f.frames = append(f.frames, buf)
	f.mu.Unlock()
	return nil
}

func (f *fakeWire) WriteControl(messageType int, data []byte, deadline time.Time) error { return nil }
func (f *fakeWire) SetWriteDeadline(t time.Time) error                                  { return nil }

func (f *fakeWire) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeWire) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeWire) waitFrames(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if f.frameCount() >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected %d frames, got %d", n, f.frameCount())
}

func attach(t *testing.T, r *Router, userID string) (*Connection, *fakeWire) {
	t.Helper()
	w := &fakeWire{}
	conn := NewConnection(userID, w)
	r.Attach(conn)
	t.Cleanup(func() { conn.Close(websocket.CloseNormalClosure, "test done") })
	return conn, w
}

func TestBroadcastReachesAllRoomSessions(t *testing.T) {
	r := NewRouter()
	defer r.Close()

	c1, w1 := attach(t, r, "alice")
	c2, w2 := attach(t, r, "bob")
	r.Join("room-1", c1)
	r.Join("room-1", c2)

	n := r.Broadcast("room-1", []byte(`{"type":"ping"}`), "")
	if n != 2 {
		t.Fatalf("expected delivery to 2 sessions, got %d", n)
	}
	w1.waitFrames(t, 1)
	w2.waitFrames(t, 1)
}

func TestBroadcastExcludesEmittingSession(t *testing.T) {
	r := NewRouter()
	defer r.Close()

	c1, w1 := attach(t, r, "alice")
	c2, w2 := attach(t, r, "bob")
	r.Join("room-1", c1)
	r.Join("room-1", c2)

	n := r.Broadcast("room-1", []byte(`{"type":"typing"}`), c1.ID)
	if n != 1 {
		t.Fatalf("expected delivery to 1 session, got %d", n)
	}
	w2.waitFrames(t, 1)
	time.Sleep(20 * time.Millisecond)
	if w1.frameCount() != 0 {
		t.Error("emitting session must not receive its own typing event")
	}
}

func TestBroadcastSkipsOtherRooms(t *testing.T) {
	r := NewRouter()
	defer r.Close()

	c1, _ := attach(t, r, "alice")
	c2, w2 := attach(t, r, "bob")
	r.Join("room-1", c1)
	r.Join("room-2", c2)

	if n := r.Broadcast("room-1", []byte("x"), ""); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	time.Sleep(20 * time.Millisecond)
	if w2.frameCount() != 0 {
		t.Error("session in another room must not receive the payload")
	}
}

func TestBroadcastAllReachesEverySession(t *testing.T) {
	r := NewRouter()
	defer r.Close()

	_, w1 := attach(t, r, "alice")
	_, w2 := attach(t, r, "bob")

	if n := r.BroadcastAll([]byte(`{"type":"userOnline"}`)); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	w1.waitFrames(t, 1)
	w2.waitFrames(t, 1)
}

func TestNotifyUserHitsAllUserSessions(t *testing.T) {
	r := NewRouter()
	defer r.Close()

	_, w1 := attach(t, r, "alice")
	_, w2 := attach(t, r, "alice")
	_, w3 := attach(t, r, "bob")

	if !r.NotifyUser("alice", []byte("hi")) {
		t.Fatal("expected delivery to alice")
	}
	w1.waitFrames(t, 1)
	w2.waitFrames(t, 1)
	time.Sleep(20 * time.Millisecond)
	if w3.frameCount() != 0 {
		t.Error("bob must not receive alice's payload")
	}
}

func TestNotifyUnknownUser(t *testing.T) {
	r := NewRouter()
	defer r.Close()
	if r.NotifyUser("ghost", []byte("hi")) {
		t.Error("expected no delivery for an unknown user")
	}
}

func TestDetachRemovesSessionFromRooms(t *testing.T) {
	r := NewRouter()
	defer r.Close()

	c1, w1 := attach(t, r, "alice")
	c2, w2 := attach(t, r, "bob")
	r.Join("room-1", c1)
	r.Join("room-1", c2)

	r.Detach(c1)

	if n := r.Broadcast("room-1", []byte("x"), ""); n != 1 {
		t.Fatalf("expected 1 delivery after detach, got %d", n)
	}
	w2.waitFrames(t, 1)
	time.Sleep(20 * time.Millisecond)
	if w1.frameCount() != 0 {
		t.Error("detached session must not receive broadcasts")
	}
}

func TestJoinRequiresAttachedSession(t *testing.T) {
	r := NewRouter()
	defer r.Close()

	w := &fakeWire{}
	conn := NewConnection("alice", w)
	r.Join("room-1", conn)

	if n := r.Broadcast("room-1", []byte("x"), ""); n != 0 {
		t.Errorf("unattached session must not join rooms, got %d deliveries", n)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	w := &fakeWire{}
	conn := NewConnection("alice", w)
	conn.Start()
	conn.Close(websocket.CloseNormalClosure, "bye")

	if err := conn.Send([]byte("late")); err == nil {
		t.Error("Send after Close must return an error")
	}
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if !closed {
		t.Error("underlying wire must be closed")
	}
}
