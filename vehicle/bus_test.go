package vehicle

import (
	"sync"
	"testing"
	"time"

	"dash-service/catalog"
)

func TestEventBus_LastValueWins(t *testing.T) {
	bus := NewEventBus()
	t0 := time.Unix(100, 0)

	bus.Publish("rpm", catalog.Float(1000), t0)
	bus.Publish("rpm", catalog.Float(2000), t0.Add(time.Millisecond))

	ev, ok := bus.Get("rpm")
	if !ok {
		t.Fatal("rpm not found")
	}
	if ev.Value.Num != 2000 {
		t.Errorf("expected latest value 2000, got %v", ev.Value.Num)
	}
	if !ev.Time.Equal(t0.Add(time.Millisecond)) {
		t.Errorf("expected latest timestamp, got %v", ev.Time)
	}
}

func TestEventBus_GetMissing(t *testing.T) {
	bus := NewEventBus()
	if _, ok := bus.Get("nothing"); ok {
		t.Error("expected miss for unpublished name")
	}
}

func TestEventBus_SnapshotIsCopy(t *testing.T) {
	bus := NewEventBus()
	bus.Publish("gear", catalog.Enum(1, "park"), time.Now())

	snap := bus.Snapshot()
	if len(snap) != 1 || snap["gear"].Value.Tag != "park" {
		t.Fatalf("unexpected snapshot %v", snap)
	}

	// Mutating the snapshot must not affect the bus.
	delete(snap, "gear")
	if _, ok := bus.Get("gear"); !ok {
		t.Error("snapshot mutation leaked into bus")
	}
}

func TestEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewEventBus()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish("rpm", catalog.Float(float64(n*100+j)), time.Now())
				bus.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	if _, ok := bus.Get("rpm"); !ok {
		t.Error("rpm missing after concurrent publishes")
	}
}
