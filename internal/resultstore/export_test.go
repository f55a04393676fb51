package resultstore

import "time"

// SetRetryHook observes every retry of a load or save.
func (s *Store) SetRetryHook(fn func(op string, attempt int, delay time.Duration)) {
	s.onRetry = fn
}
