package sqlite

import "time"

// SetClock replaces the recorder's time source.
func SetClock(r *Recorder, now func() time.Time) {
	r.now = now
}
