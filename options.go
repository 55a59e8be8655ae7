package cryptoroom

import (
	"io"
	"log/slog"

	"github.com/littlerose/cryptoroom/internal/kuznyechik"
	"github.com/littlerose/cryptoroom/internal/metrics"
	"github.com/littlerose/cryptoroom/internal/mode"
)

// Progress receives notifications while a file is processed. Any field may
// be nil. DecryptFileParallel calls Status from both of its goroutines, so
// callers that share state between callbacks must synchronize.
type Progress struct {
	// SetDataSize reports the plaintext size in bytes.
	SetDataSize func(size uint64)
	// SetBlockCount reports the number of full data blocks.
	SetBlockCount func(count uint64)
	// BlockDone reports the index of each processed data block.
	BlockDone func(index uint64)
	// Status reports a short description of the current stage.
	Status func(text string)
}

// workerConfig holds configuration for the worker.
type workerConfig struct {
	logger    *slog.Logger
	progress  Progress
	metrics   *metrics.Registry
	rand      io.Reader
	algorithm kuznyechik.Algorithm
}

// Option configures the worker.
type Option func(*workerConfig)

// WithLogger sets the logger. Logging is discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *workerConfig) {
		c.logger = logger
	}
}

// WithProgress sets the progress callbacks.
func WithProgress(p Progress) Option {
	return func(c *workerConfig) {
		c.progress = p
	}
}

// WithMetrics records operation metrics in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *workerConfig) {
		c.metrics = r
	}
}

// WithRand sets the source of session keys, IVs and signature nonces.
// Default: crypto/rand
func WithRand(r io.Reader) Option {
	return func(c *workerConfig) {
		c.rand = r
	}
}

// WithAlgorithm sets the block cipher variant of the chaining mode.
// Default: kuznyechik.Reference. The alternate variant cannot decrypt.
func WithAlgorithm(alg kuznyechik.Algorithm) Option {
	return func(c *workerConfig) {
		c.algorithm = alg
	}
}

func (c *workerConfig) status(text string) {
	c.logger.Debug(text)
	if c.progress.Status != nil {
		c.progress.Status(text)
	}
}

// modeProgress adapts the callbacks to the chaining loop and feeds the
// byte and block counters of operation.
func (c *workerConfig) modeProgress(operation string) mode.Progress {
	p := mode.Progress{
		SetDataSize:   c.progress.SetDataSize,
		SetBlockCount: c.progress.SetBlockCount,
		BlockDone:     c.progress.BlockDone,
	}
	if c.metrics != nil {
		size := p.SetDataSize
		p.SetDataSize = func(n uint64) {
			c.metrics.AddBytes(operation, n)
			if size != nil {
				size(n)
			}
		}
		done := p.BlockDone
		p.BlockDone = func(i uint64) {
			c.metrics.BlockDone(operation)
			if done != nil {
				done(i)
			}
		}
	}
	return p
}
