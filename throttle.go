package main

import (
	"sync"
	"time"
)

// Throttle allows one write per key within the cooldown window.
type Throttle struct {
	cooldown time.Duration
	writes   map[string]time.Time
	mutex    sync.Mutex
	now      func() time.Time
}

func NewThrottle(cooldown time.Duration) *Throttle {
	return &Throttle{
		cooldown: cooldown,
		writes:   make(map[string]time.Time),
		now:      time.Now,
	}
}

func (t *Throttle) CanWrite(key string) bool {
	if t.cooldown == 0 {
		return true
	}
	now := t.now()
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.clean(now)
	if expires, found := t.writes[key]; found && expires.After(now) {
		return false
	}
	t.writes[key] = now.Add(t.cooldown)
	return true
}

func (t *Throttle) clean(now time.Time) {
	for key, expires := range t.writes {
		if !expires.After(now) {
			delete(t.writes, key)
		}
	}
}
