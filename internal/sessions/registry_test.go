package sessions

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/devenglish/internal/journal"
)

type fakeSession struct {
	id         string
	lastActive time.Time
	closed     atomic.Bool
}

func (f *fakeSession) ID() string            { return f.id }
func (f *fakeSession) LastActive() time.Time { return f.lastActive }
func (f *fakeSession) Close()                { f.closed.Store(true) }

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()
	r := NewRegistry[*fakeSession]("test")

	a := &fakeSession{id: "a", lastActive: time.Now()}
	r.Register(a)
	if got, ok := r.Get("a"); !ok || got != a {
		t.Fatalf("Get(a) = %v, %v", got, ok)
	}

	replacement := &fakeSession{id: "a", lastActive: time.Now()}
	r.Register(replacement)
	if !a.closed.Load() {
		t.Fatal("expected replaced session to be closed")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", r.Len())
	}

	if !r.Remove("a") || !replacement.closed.Load() {
		t.Fatal("expected Remove to close the session")
	}
	if r.Remove("a") {
		t.Fatal("second Remove should report false")
	}
	if _, ok := r.Get("a"); ok {
		t.Fatal("expected session to be gone")
	}
}

func TestRegistryExpire(t *testing.T) {
	t.Parallel()
	r := NewRegistry[*fakeSession]("test")

	idle := &fakeSession{id: "idle", lastActive: time.Now().Add(-2 * time.Hour)}
	fresh := &fakeSession{id: "fresh", lastActive: time.Now()}
	r.Register(idle)
	r.Register(fresh)

	if n := r.Expire(time.Now().Add(-time.Hour)); n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if !idle.closed.Load() || fresh.closed.Load() {
		t.Fatal("wrong session closed")
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Fatal("fresh session should remain")
	}

	r.CloseAll()
	if !fresh.closed.Load() || r.Len() != 0 {
		t.Fatal("CloseAll should close and drop everything")
	}
}

type countingJournal struct {
	journal.Nop
	pruned atomic.Int32
}

func (c *countingJournal) Prune(context.Context, time.Duration) (int64, error) {
	c.pruned.Add(1)
	return 3, nil
}

func TestSweepExpiresAndPrunes(t *testing.T) {
	t.Parallel()
	r := NewRegistry[*fakeSession]("test")
	idle := &fakeSession{id: "idle", lastActive: time.Now().Add(-time.Hour)}
	r.Register(idle)

	repo := &countingJournal{}
	Sweep(context.Background(), SweeperConfig{TTL: time.Minute, JournalRetention: time.Hour}, repo, r)

	if !idle.closed.Load() {
		t.Fatal("expected idle session to be closed")
	}
	if repo.pruned.Load() != 1 {
		t.Fatalf("expected one prune call, got %d", repo.pruned.Load())
	}
}

func TestStartSweeperStopsOnCancel(t *testing.T) {
	t.Parallel()
	r := NewRegistry[*fakeSession]("test")
	idle := &fakeSession{id: "idle", lastActive: time.Now().Add(-time.Hour)}
	r.Register(idle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartSweeper(ctx, SweeperConfig{Interval: 10 * time.Millisecond, TTL: time.Minute}, nil, r)

	deadline := time.Now().Add(2 * time.Second)
	for !idle.closed.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !idle.closed.Load() {
		t.Fatal("sweeper did not expire idle session")
	}
}

func TestNewIDUnique(t *testing.T) {
	t.Parallel()
	if NewID() == NewID() {
		t.Fatal("expected unique ids")
	}
}
