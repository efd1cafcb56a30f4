package service

import "time"

// Clock supplies the current instant. Injected so tests can drive
// deadline and expiry behavior deterministically.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}
