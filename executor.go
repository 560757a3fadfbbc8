package healthsync

import (
	"context"

	"github.com/sgzrov/Voyant/internal/shardqueue"
)

// executor abstracts the internal async job runner so tests can substitute
// an inline implementation.
type executor interface {
	Submit(ctx context.Context, key string, job shardqueue.Job) error
	Stop()
}
