package update

import (
	"testing"
	"time"
)

func TestStateCellCurrent(t *testing.T) {
	c := NewStateCell(nil)
	if _, ok := c.Current().(Idle); !ok {
		t.Fatalf("nil initial should become Idle, got %T", c.Current())
	}
	c.Set(Checking{})
	if _, ok := c.Current().(Checking); !ok {
		t.Errorf("Current() = %T, want Checking", c.Current())
	}
}

func TestStateCellSubscribeReplaysCurrent(t *testing.T) {
	c := NewStateCell(UpToDate{})
	ch, cancel := c.Subscribe()
	defer cancel()

	if got := collect(t, ch, 1)[0]; got.Kind() != KindUpToDate {
		t.Errorf("first value = %s, want up-to-date", got.Kind())
	}
}

func TestStateCellDeliversInOrderWithoutLoss(t *testing.T) {
	c := NewStateCell(Idle{})
	ch, cancel := c.Subscribe()
	defer cancel()

	const n = 500
	for i := 1; i <= n; i++ {
		c.Set(Downloading{BytesDone: int64(i), BytesTotal: n})
	}

	got := collect(t, ch, n+1)
	if got[0].Kind() != KindIdle {
		t.Fatalf("first = %s, want idle", got[0].Kind())
	}
	for i := 1; i <= n; i++ {
		dl, ok := got[i].(Downloading)
		if !ok || dl.BytesDone != int64(i) {
			t.Fatalf("value %d = %+v, want BytesDone %d", i, got[i], i)
		}
	}
}

func TestStateCellMultipleSubscribers(t *testing.T) {
	c := NewStateCell(Idle{})
	a, cancelA := c.Subscribe()
	defer cancelA()
	b, cancelB := c.Subscribe()
	defer cancelB()

	if c.Subscribers() != 2 {
		t.Fatalf("Subscribers() = %d, want 2", c.Subscribers())
	}

	c.Set(Checking{})
	c.Set(UpToDate{})

	want := []Kind{KindIdle, KindChecking, KindUpToDate}
	if got := kinds(collect(t, b, len(want))); !equalKinds(got, want) {
		t.Errorf("subscriber b got %v, want %v", got, want)
	}
	if got := kinds(collect(t, a, len(want))); !equalKinds(got, want) {
		t.Errorf("subscriber a got %v, want %v", got, want)
	}
}

func TestStateCellSlowSubscriberDoesNotBlockWriter(t *testing.T) {
	c := NewStateCell(Idle{})
	_, cancel := c.Subscribe() // never read
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			c.Set(Checking{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Set blocked on an unread subscriber")
	}
}

func TestStateCellCancel(t *testing.T) {
	c := NewStateCell(Idle{})
	ch, cancel := c.Subscribe()
	collect(t, ch, 1)

	cancel()
	cancel() // idempotent

	if c.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after cancel", c.Subscribers())
	}
	c.Set(Checking{})

	waitClosed(t, ch)
}

func TestStateCellCloseAll(t *testing.T) {
	c := NewStateCell(Idle{})
	ch, cancel := c.Subscribe()
	collect(t, ch, 1)

	c.closeAll()
	waitClosed(t, ch)

	// Cancel after closeAll must not panic.
	cancel()
	if c.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after closeAll", c.Subscribers())
	}
}

// waitClosed drains ch until it is closed or fails after a timeout.
func waitClosed(t *testing.T, ch <-chan State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("channel not closed")
		}
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindIdle:            "idle",
		KindChecking:        "checking",
		KindUpdateAvailable: "update-available",
		KindUpToDate:        "up-to-date",
		KindDownloading:     "downloading",
		KindReadyToInstall:  "ready-to-install",
		KindError:           "error",
		Kind(99):            "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestProgressOf(t *testing.T) {
	tests := []struct {
		done, total int64
		want        float64
	}{
		{0, 0, 0},
		{50, 0, 0},
		{50, -1, 0},
		{50, 100, 0.5},
		{100, 100, 1},
		{150, 100, 1.5},
	}
	for _, tt := range tests {
		if got := progressOf(tt.done, tt.total); got != tt.want {
			t.Errorf("progressOf(%d, %d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
	}
}
