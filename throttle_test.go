package main

import (
	"testing"
	"time"
)

func TestThrottle(t *testing.T) {
	t.Run("throttle blocks too frequent writes", func(t *testing.T) {
		now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		th := NewThrottle(time.Second)
		th.now = func() time.Time { return now }
		if !th.CanWrite("test") {
			t.Errorf("Expected to be allowed to make first write")
		}
		if th.CanWrite("test") {
			t.Errorf("Expected second write to be blocked")
		}
		if !th.CanWrite("other") {
			t.Errorf("Expected other keys to be allowed")
		}
		now = now.Add(time.Hour)
		if !th.CanWrite("test") {
			t.Errorf("Expected to be allowed to write after the cooldown")
		}
		if len(th.writes) != 1 {
			t.Errorf("Expected expired keys to be cleaned, got %d", len(th.writes))
		}
	})

	t.Run("zero cooldown disables throttling", func(t *testing.T) {
		th := NewThrottle(0)
		for i := 0; i < 3; i++ {
			if !th.CanWrite("test") {
				t.Errorf("Expected write %d to be allowed", i)
			}
		}
	})
}
