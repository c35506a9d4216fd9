package pdoflow

import (
	"testing"
	"time"
)

func TestBackoffCounterGrowsAndCaps(t *testing.T) {
	bc := backoffCounter{BackoffConfig{
		MaxRetries:          0,
		InitialInterval:     10 * time.Millisecond,
		MaxInterval:         40 * time.Millisecond,
		Multiplier:          2,
		RandomizationFactor: 0,
	}}

	first, ok := bc.next(1)
	if !ok || first != 10*time.Millisecond {
		t.Fatalf("attempt 1: got %v, ok=%v", first, ok)
	}
	second, ok := bc.next(2)
	if !ok || second != 20*time.Millisecond {
		t.Fatalf("attempt 2: got %v, ok=%v", second, ok)
	}
	// attempt 4 would exceed MaxInterval unclamped (80ms); must cap at 40ms.
	fourth, ok := bc.next(4)
	if !ok || fourth != 40*time.Millisecond {
		t.Fatalf("attempt 4: got %v, ok=%v", fourth, ok)
	}
}

func TestBackoffCounterMaxRetries(t *testing.T) {
	bc := backoffCounter{BackoffConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
	}}

	if _, ok := bc.next(2); !ok {
		t.Fatal("attempt 2 should still be allowed")
	}
	if _, ok := bc.next(3); ok {
		t.Fatal("attempt 3 should exceed MaxRetries")
	}
}
