package watch

import (
	"slices"
	"time"
)

// debouncer tracks when each changed path becomes quiet.
type debouncer struct {
	settle   time.Duration
	deadline map[string]time.Time
}

func newDebouncer(settle time.Duration) *debouncer {
	return &debouncer{settle: settle, deadline: make(map[string]time.Time)}
}

func (d *debouncer) len() int {
	return len(d.deadline)
}

// touch records an event for path at now, pushing its deadline back.
func (d *debouncer) touch(path string, now time.Time) {
	d.deadline[path] = now.Add(d.settle)
}

// due removes and returns, in sorted order, the paths quiet since now-settle.
func (d *debouncer) due(now time.Time) []string {
	var ready []string
	for path, deadline := range d.deadline {
		if !deadline.After(now) {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(d.deadline, path)
	}
	slices.Sort(ready)
	return ready
}

// next returns the wait until the earliest deadline, if any path is pending.
func (d *debouncer) next(now time.Time) (time.Duration, bool) {
	if len(d.deadline) == 0 {
		return 0, false
	}
	var earliest time.Time
	for _, deadline := range d.deadline {
		if earliest.IsZero() || deadline.Before(earliest) {
			earliest = deadline
		}
	}
	return max(earliest.Sub(now), 0), true
}
