package ec

import "errors"

var (
	// ErrUnknownCurve is returned when a curve lookup fails.
	ErrUnknownCurve = errors.New("unknown curve")

	// ErrZeroPrivateKey is returned when signing with d == 0.
	ErrZeroPrivateKey = errors.New("private signing key is zero")

	// ErrSqrtNotFound is returned when no modular square root could be
	// computed within the retry budget.
	ErrSqrtNotFound = errors.New("modular square root not found")

	// ErrInvalidPoint is returned for malformed or off-curve points.
	ErrInvalidPoint = errors.New("invalid curve point")
)
