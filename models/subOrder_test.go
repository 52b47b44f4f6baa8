package models

import (
	"errors"
	"sync"
	"testing"
)

// memoryStatus mimics the conditional UPDATE: the swap only lands while the
// stored status still equals the caller's snapshot.
type memoryStatus struct {
	mu      sync.Mutex
	current SubOrderStatus
}

func (m *memoryStatus) swap(from, to SubOrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != from {
		return false, nil
	}
	m.current = to
	return true, nil
}

// Two factory clients clicking "packed" at the same moment: exactly one
// request may win, every loser must see ErrInvalidTransition and the stored
// status must advance exactly one step.
func TestAdvanceStatusSingleWinner(t *testing.T) {
	store := &memoryStatus{current: SubOrderStatusPending}

	const callers = 8
	results := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every caller read the sub-order while it was still pending
			results[i] = advanceStatus(SubOrderStatusPending, SubOrderStatusPacked, store.swap)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidTransition):
		default:
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d winners, want exactly 1", wins)
	}
	if store.current != SubOrderStatusPacked {
		t.Fatalf("stored status = %s, want packed", store.current)
	}
}

func TestAdvanceStatusRejectsIllegalStepBeforeSwap(t *testing.T) {
	called := false
	err := advanceStatus(SubOrderStatusPending, SubOrderStatusShipped,
		func(from, to SubOrderStatus) (bool, error) {
			called = true
			return true, nil
		})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if called {
		t.Error("swap must not run for an illegal step")
	}
}

func TestAdvanceStatusStaleSnapshotLoses(t *testing.T) {
	store := &memoryStatus{current: SubOrderStatusShipped}

	// caller still believes the sub-order is packed
	err := advanceStatus(SubOrderStatusPacked, SubOrderStatusShipped, store.swap)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if store.current != SubOrderStatusShipped {
		t.Fatalf("stored status = %s, want shipped untouched", store.current)
	}
}

func TestAdvanceStatusFullChain(t *testing.T) {
	store := &memoryStatus{current: SubOrderStatusPending}
	steps := []SubOrderStatus{SubOrderStatusPacked, SubOrderStatusShipped, SubOrderStatusDelivered}

	for _, next := range steps {
		if err := advanceStatus(store.current, next, store.swap); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if store.current != SubOrderStatusDelivered {
		t.Fatalf("stored status = %s, want delivered", store.current)
	}

	// delivered is terminal
	if err := advanceStatus(store.current, SubOrderStatusCancelled, store.swap); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestAdvanceStatusCancelOnlyWhilePending(t *testing.T) {
	store := &memoryStatus{current: SubOrderStatusPending}
	if err := advanceStatus(store.current, SubOrderStatusCancelled, store.swap); err != nil {
		t.Fatalf("cancel from pending: %v", err)
	}
	if store.current != SubOrderStatusCancelled {
		t.Fatalf("stored status = %s, want cancelled", store.current)
	}

	packed := &memoryStatus{current: SubOrderStatusPacked}
	if err := advanceStatus(packed.current, SubOrderStatusCancelled, packed.swap); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}
