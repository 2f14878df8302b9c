package resolution

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	sess := &Session{ID: "abc", State: StateAwaitingApproval, PendingExtras: []string{"milk"}}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateAwaitingApproval || len(got.PendingExtras) != 1 {
		t.Fatalf("loaded session = %+v", got)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemorySessionStoreLoadsAreIsolated(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()

	sess := &Session{ID: "iso", State: StateAwaitingApproval, PendingExtras: []string{"milk"}, ExtraCount: 1}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	first, err := store.Load(ctx, "iso")
	if err != nil {
		t.Fatal(err)
	}
	first.PendingExtras = nil
	first.ExtraCount = 5

	second, err := store.Load(ctx, "iso")
	if err != nil {
		t.Fatal(err)
	}
	if len(second.PendingExtras) != 1 || second.ExtraCount != 1 {
		t.Fatalf("mutation leaked into the store: %+v", second)
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore(10 * time.Millisecond)
	ctx := context.Background()

	if err := store.Save(ctx, &Session{ID: "soon-gone"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := store.Load(ctx, "soon-gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want expiry", err)
	}
}

func TestComboRejectedIsOrderInsensitive(t *testing.T) {
	sess := &Session{RejectedCombinations: [][]string{{"Milk", "butter"}}}

	if !sess.ComboRejected([]string{"butter", "milk"}) {
		t.Fatal("order should not matter")
	}
	if sess.ComboRejected([]string{"milk"}) {
		t.Fatal("subset is a different combination")
	}
	if sess.ComboRejected([]string{"milk", "butter", "cheese"}) {
		t.Fatal("superset is a different combination")
	}
}

func TestAlreadyProposed(t *testing.T) {
	sess := &Session{ExtrasProposed: []string{"Milk"}}
	if !sess.AlreadyProposed("  milk ") {
		t.Fatal("normalization should match")
	}
	if sess.AlreadyProposed("yogurt") {
		t.Fatal("yogurt was never proposed")
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateCaching, StateSearching, StateGenerating, StateReviewing, StateAwaitingApproval} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	for _, s := range []State{StatePersisting, StateFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}
