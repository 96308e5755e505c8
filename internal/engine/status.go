package engine

import (
	"sync"
	"time"
)

const recentTicks = 100

// Status describes the poll loop for diagnostics.
type Status struct {
	State           State
	SessionID       string
	LastPoll        time.Time
	LastDuration    time.Duration
	LastError       string
	Ticks           int
	Failures        int
	TicksLastMinute int
}

type statusRecorder struct {
	mu       sync.Mutex
	st       Status
	recent   [recentTicks]time.Time
	next     int
	recorded int
}

func (r *statusRecorder) record(sessionID string, at time.Time, took time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.st.SessionID = sessionID
	r.st.LastPoll = at
	r.st.LastDuration = took
	r.st.Ticks++
	r.st.LastError = ""
	if err != nil {
		r.st.Failures++
		r.st.LastError = err.Error()
	}
	r.recent[r.next] = at
	r.next = (r.next + 1) % recentTicks
	if r.recorded < recentTicks {
		r.recorded++
	}
}

func (r *statusRecorder) snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.st
	cutoff := time.Now().Add(-time.Minute)
	for i := 0; i < r.recorded; i++ {
		if r.recent[i].After(cutoff) {
			st.TicksLastMinute++
		}
	}
	return st
}
