package rpc

import (
	"sync/atomic"
)

// Stats counts handler activity. Many in-flight tasks increment concurrently,
// so each counter is an atomic rather than a shared lock.
type Stats struct {
	requests      atomic.Int64
	notifications atomic.Int64
	errors        atomic.Int64
	batches       atomic.Int64
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_processed":     s.requests.Load(),
		"notifications_received": s.notifications.Load(),
		"errors":                 s.errors.Load(),
		"batches_processed":      s.batches.Load(),
	}
}
