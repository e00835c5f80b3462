package realtime

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type presenceRecorder struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (r *presenceRecorder) onOnline(userID string) {
	r.mu.Lock()
	r.online = append(r.online, userID)
	r.mu.Unlock()
}

func (r *presenceRecorder) onOffline(userID string) {
	r.mu.Lock()
	r.offline = append(r.offline, userID)
	r.mu.Unlock()
}

func (r *presenceRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.online), len(r.offline)
}

func TestPresenceFirstConnectionEmitsOnlineOnce(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresenceRegistry(time.Minute, rec.onOnline, rec.onOffline)

	p.RegisterConnection("alice", "c1")
	p.RegisterConnection("alice", "c2")

	on, off := rec.counts()
	if on != 1 {
		t.Fatalf("expected 1 online event, got %d", on)
	}
	if off != 0 {
		t.Fatalf("expected 0 offline events, got %d", off)
	}
	if !p.IsOnline("alice") {
		t.Error("alice should be online")
	}
	if got := p.Connections("alice"); got != 2 {
		t.Errorf("expected 2 connections, got %d", got)
	}
}

func TestPresenceOfflineAfterGrace(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresenceRegistry(30*time.Millisecond, rec.onOnline, rec.onOffline)

	p.RegisterConnection("bob", "c1")
	p.UnregisterConnection("bob", "c1")

	if !p.IsOnline("bob") {
		t.Fatal("bob should still be online during the grace window")
	}
	if _, off := rec.counts(); off != 0 {
		t.Fatal("offline must not fire before the grace period elapses")
	}

	waitFor(t, time.Second, func() bool {
		_, off := rec.counts()
		return off == 1
	})
	if p.IsOnline("bob") {
		t.Error("bob should be offline after the grace period")
	}
}

func TestPresenceReconnectWithinGraceSuppressesOffline(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresenceRegistry(40*time.Millisecond, rec.onOnline, rec.onOffline)

	p.RegisterConnection("carol", "c1")
	p.UnregisterConnection("carol", "c1")
	p.RegisterConnection("carol", "c2")

	time.Sleep(120 * time.Millisecond)

	on, off := rec.counts()
	if on != 1 {
		t.Errorf("expected 1 online event, got %d", on)
	}
	if off != 0 {
		t.Errorf("expected 0 offline events after reconnect, got %d", off)
	}
	if !p.IsOnline("carol") {
		t.Error("carol should be online")
	}
}

func TestPresenceFlappingEmitsNoExtraEvents(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresenceRegistry(50*time.Millisecond, rec.onOnline, rec.onOffline)

	p.RegisterConnection("dave", "c0")
	for i := 1; i <= 5; i++ {
		p.UnregisterConnection("dave", fmt.Sprintf("c%d", i-1))
		p.RegisterConnection("dave", fmt.Sprintf("c%d", i))
	}

	time.Sleep(150 * time.Millisecond)

	on, off := rec.counts()
	if on != 1 || off != 0 {
		t.Errorf("flapping within grace: want 1 online / 0 offline, got %d / %d", on, off)
	}
}

func TestPresenceLastDisconnectWinsAfterStackedCycles(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresenceRegistry(30*time.Millisecond, rec.onOnline, rec.onOffline)

	// Each cycle schedules a timer; only the final one may fire.
	p.RegisterConnection("erin", "c1")
	p.UnregisterConnection("erin", "c1")
	p.RegisterConnection("erin", "c2")
	p.UnregisterConnection("erin", "c2")

	waitFor(t, time.Second, func() bool {
		_, off := rec.counts()
		return off == 1
	})
	time.Sleep(80 * time.Millisecond)
	if _, off := rec.counts(); off != 1 {
		t.Errorf("expected exactly 1 offline event, got %d", off)
	}
}

func TestPresenceOfflineEmissionCompletesBeforeReconnectOnline(t *testing.T) {
	var mu sync.Mutex
	var events []string
	offlineStarted := make(chan struct{})
	releaseOffline := make(chan struct{})

	onOnline := func(string) {
		mu.Lock()
		events = append(events, "online")
		mu.Unlock()
	}
	onOffline := func(string) {
		mu.Lock()
		events = append(events, "offline")
		mu.Unlock()
		close(offlineStarted)
		<-releaseOffline
	}

	p := NewPresenceRegistry(10*time.Millisecond, onOnline, onOffline)
	p.RegisterConnection("grace", "c1")
	p.UnregisterConnection("grace", "c1")

	// Reconnect while the offline callback is still in flight: the online
	// announcement must queue behind it, never overtake it.
	<-offlineStarted
	done := make(chan struct{})
	go func() {
		p.RegisterConnection("grace", "c2")
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	premature := len(events) > 2
	mu.Unlock()
	if premature {
		t.Fatal("online emitted while the offline callback was still running")
	}

	close(releaseOffline)
	<-done

	mu.Lock()
	got := append([]string(nil), events...)
	mu.Unlock()
	if len(got) != 3 || got[1] != "offline" || got[2] != "online" {
		t.Fatalf("expected [online offline online], got %v", got)
	}
	if !p.IsOnline("grace") {
		t.Error("user must be online after the reconnect")
	}
}

func TestPresenceUsersAreIndependent(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresenceRegistry(20*time.Millisecond, rec.onOnline, rec.onOffline)

	p.RegisterConnection("u1", "a")
	p.RegisterConnection("u2", "b")
	p.UnregisterConnection("u1", "a")

	waitFor(t, time.Second, func() bool { return !p.IsOnline("u1") })
	if !p.IsOnline("u2") {
		t.Error("u2 must stay online when u1 goes offline")
	}
}

func TestPresenceConcurrentRegistrations(t *testing.T) {
	rec := &presenceRecorder{}
	p := NewPresenceRegistry(time.Minute, rec.onOnline, rec.onOffline)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.RegisterConnection("frank", fmt.Sprintf("conn-%d", n))
		}(i)
	}
	wg.Wait()

	on, _ := rec.counts()
	if on != 1 {
		t.Errorf("expected exactly 1 online event under concurrency, got %d", on)
	}
	if got := p.Connections("frank"); got != 50 {
		t.Errorf("expected 50 tracked connections, got %d", got)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
