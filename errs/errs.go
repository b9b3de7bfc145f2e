// Package errs holds the sentinel errors every package wraps with
// fmt.Errorf("%w: ...") at the call site, a flat taxonomy rather than a
// custom error-code framework.
package errs

import "errors"

var (
	// ErrSpecInvalid marks a network specification that is structurally
	// unsound: unknown layer type, missing size, or an unresolved/cyclic
	// input reference. Fatal at build time.
	ErrSpecInvalid = errors.New("spec invalid")

	// ErrShapeMismatch marks an operation that saw incompatible tensor
	// shapes. Fatal; callers should include both operand shapes in the
	// wrapping message.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrCheckpointIncompatible marks a loaded parameter whose shape does
	// not match its declared layer. Fatal at load.
	ErrCheckpointIncompatible = errors.New("checkpoint incompatible")

	// ErrNumericInstability marks a NaN/Inf observed in values after a
	// forward pass or in weights after a parameter update. Non-fatal by
	// default: callers log and continue unless an assertion hook is
	// installed.
	ErrNumericInstability = errors.New("numeric instability")

	// ErrPersistenceFailure marks a failed parameter save. Non-fatal:
	// callers log and continue training.
	ErrPersistenceFailure = errors.New("persistence failure")
)
