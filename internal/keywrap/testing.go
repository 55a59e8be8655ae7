package keywrap

import "io"

// SetRandReaderForTesting sets the random source used for key generation and
// wrapping. It returns a function restoring the previous source.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}
