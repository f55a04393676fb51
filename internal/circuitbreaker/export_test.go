package circuitbreaker

import "time"

// SetClock replaces the breaker clock.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}
