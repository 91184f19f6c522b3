package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrBackend is returned when a cache backend fails (I/O, connection).
	// Callers usually treat it as a miss and carry on without the cache.
	ErrBackend = errors.New("cache backend error")

	// ErrUnknownBackend is returned by [Open] for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")
)

func backendError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrBackend, op, err)
}
