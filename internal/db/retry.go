package db

import (
	"strings"
	"time"

	"github.com/banshee-data/scenebench/internal/timeutil"
)

const (
	busyRetries = 5
	busyBackoff = 50 * time.Millisecond
)

// isSQLiteBusy reports whether err is a lock contention error.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying with linear backoff while sqlite reports the
// database as locked.
func retryOnBusy(fn func() error) error {
	return retryOnBusyWith(timeutil.RealClock{}, fn)
}

func retryOnBusyWith(clock timeutil.Clock, fn func() error) error {
	var err error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		if err = fn(); !isSQLiteBusy(err) {
			return err
		}
		if attempt < busyRetries {
			clock.Sleep(busyBackoff * time.Duration(attempt+1))
		}
	}
	return err
}
