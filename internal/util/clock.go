package util

import "time"

// Now is the service clock: UTC at microsecond precision, which both the
// MySQL DATETIME(6) columns and sqlite text timestamps store exactly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
