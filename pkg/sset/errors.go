package sset

import "fmt"

// ErrInvalidOperation is returned when an Operation fails validation: an
// empty id-path or an unrecognized Keep discipline.
type ErrInvalidOperation = error

func NewInvalidOperationError(reason string) ErrInvalidOperation {
	return fmt.Errorf("invalid sorted-set operation: %s", reason)
}

// ErrBackend wraps a failure reported by the concrete backend (connection
// loss, transaction failure, cluster error).
type ErrBackend = error

func NewBackendError(op string, err error) ErrBackend {
	return fmt.Errorf("sorted-set backend error during %s: %w", op, err)
}

// ErrKeyShape is returned when an id-path cannot be turned into a backend key.
type ErrKeyShape = error

func NewKeyShapeError(reason string) ErrKeyShape {
	return fmt.Errorf("invalid sorted-set key: %s", reason)
}
