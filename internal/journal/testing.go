package journal

import "time"

// SetClock is a test helper that fixes the clock of the in-memory journal.
func SetClock(j Journal, now func() time.Time) {
	if mem, ok := j.(*inMemoryJournal); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.now = now
	}
}
