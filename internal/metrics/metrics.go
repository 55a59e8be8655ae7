package metrics

import "time"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordOperation records a finished file operation.
func (r *Registry) RecordOperation(operation string, err error, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(operation, Status(err)).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddBytes counts plaintext bytes for an operation.
func (r *Registry) AddBytes(operation string, n uint64) {
	r.BytesTotal.WithLabelValues(operation).Add(float64(n))
}

// BlockDone counts one processed cipher block.
func (r *Registry) BlockDone(operation string) {
	r.BlocksTotal.WithLabelValues(operation).Inc()
}

// RecordSelfTest records the outcome of one self test check.
func (r *Registry) RecordSelfTest(check string, err error) {
	r.SelfTestsTotal.WithLabelValues(check, Status(err)).Inc()
}
