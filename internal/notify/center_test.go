package notify

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPushIsImmediatelyVisible(t *testing.T) {
	center := NewCenterTTL(time.Minute)

	id := center.Push(SeverityInfo, "hola")

	toasts := center.Active()
	if len(toasts) != 1 {
		t.Fatalf("expected 1 toast, got %d", len(toasts))
	}
	if toasts[0].ID != id {
		t.Errorf("expected id %s, got %s", id, toasts[0].ID)
	}
	if toasts[0].Severity != SeverityInfo || toasts[0].Message != "hola" {
		t.Errorf("toast content mismatch: %+v", toasts[0])
	}
}

func TestToastEvictedAfterTTL(t *testing.T) {
	center := NewCenterTTL(30 * time.Millisecond)

	center.Push(SeveritySuccess, "listo")

	if len(center.Active()) != 1 {
		t.Fatal("toast should be visible right after push")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(center.Active()) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("toast was not evicted after the TTL elapsed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEachToastHasIndependentTimer(t *testing.T) {
	center := NewCenterTTL(60 * time.Millisecond)

	center.Push(SeverityError, "primero")
	time.Sleep(40 * time.Millisecond)
	center.Push(SeverityError, "segundo")

	// The first toast expires well before the second.
	deadline := time.Now().Add(2 * time.Second)
	for {
		toasts := center.Active()
		if len(toasts) == 1 {
			if toasts[0].Message != "segundo" {
				t.Fatalf("expected the younger toast to survive, got %q", toasts[0].Message)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected exactly one surviving toast, got %d", len(toasts))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConcurrentPushesAllVisibleWithUniqueIDs(t *testing.T) {
	center := NewCenterTTL(time.Minute)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			center.Push(SeverityInfo, fmt.Sprintf("mensaje %d", i))
		}(i)
	}
	wg.Wait()

	toasts := center.Active()
	if len(toasts) != n {
		t.Fatalf("expected %d toasts, got %d", n, len(toasts))
	}

	seen := make(map[string]bool, n)
	for _, toast := range toasts {
		if seen[toast.ID] {
			t.Fatalf("duplicate toast id %s", toast.ID)
		}
		seen[toast.ID] = true
	}
}

func TestActiveReturnsCopy(t *testing.T) {
	center := NewCenterTTL(time.Minute)
	center.Push(SeverityInfo, "original")

	toasts := center.Active()
	toasts[0].Message = "mutado"

	if center.Active()[0].Message != "original" {
		t.Error("mutating the rendered slice must not affect the registry")
	}
}
