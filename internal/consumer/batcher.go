package consumer

import (
	"context"
	"sync"

	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/internal/store"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

// batcher accumulates consumed events and writes them out in bulk. The
// buffer is snapshotted and cleared under the lock before any store I/O,
// so a size-triggered flush and a timer-triggered flush can never write
// the same events twice.
type batcher struct {
	mu        sync.Mutex
	buf       []domain.ChatMessage
	batchSize int
	store     store.MessageStore
}

func newBatcher(batchSize int, st store.MessageStore) *batcher {
	return &batcher{
		buf:       make([]domain.ChatMessage, 0, batchSize),
		batchSize: batchSize,
		store:     st,
	}
}

// Add appends a message to the buffer and reports whether the size
// threshold has been reached.
func (b *batcher) Add(msg domain.ChatMessage) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, msg)
	return len(b.buf) >= b.batchSize
}

// Len returns the number of buffered messages.
func (b *batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Flush writes out the buffered messages. A no-op on an empty buffer.
// Store failures are logged; the snapshot is not re-queued, so a failed
// flush loses at most one batch (no retry or dead-letter in this design).
func (b *batcher) Flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.buf) == 0 {
		b.mu.Unlock()
		return
	}
	snapshot := b.buf
	b.buf = make([]domain.ChatMessage, 0, b.batchSize)
	b.mu.Unlock()

	l := log.Ctx(ctx)

	inserted, err := b.store.InsertBatch(ctx, snapshot)
	if err != nil {
		l.Error().Err(err).Int(log.FieldBatchSize, len(snapshot)).Msg("failed to flush message buffer")
		return
	}

	l.Debug().
		Int(log.FieldBatchSize, len(snapshot)).
		Int("inserted", inserted).
		Msg("message buffer flushed")
}
