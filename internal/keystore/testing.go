package keystore

import (
	"io"
	"time"
)

// SetRandReaderForTesting sets the random source for salts, IVs and EC keys.
// It returns a function restoring the previous source.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}

// SetClockForTesting replaces the clock used for validity dates.
func SetClockForTesting(f func() time.Time) func() {
	original := now
	now = f
	return func() { now = original }
}
