package healthsync

import (
	"errors"

	"github.com/sgzrov/Voyant/internal/shardqueue"
)

// ErrBackPressure is reported when the internal shard queue rejects new
// cycles because it is full; the triggering notification is dropped and the
// next one retries.
var ErrBackPressure = shardqueue.ErrQueueFull

// IsBackPressure reports whether err is a back-pressure rejection.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// ErrEngineClosed is returned when work is submitted after Close.
var ErrEngineClosed = shardqueue.ErrExecutorClosed
