package consumer

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rohitgami11/MayaCode/internal/domain"
)

// fakeStore mimics the store's insert contract: unique message IDs, and
// per-document failures that do not abort the batch.
type fakeStore struct {
	mu          sync.Mutex
	docs        map[string]domain.ChatMessage
	order       []string
	batchSizes  []int
	failContent string
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]domain.ChatMessage)}
}

func (f *fakeStore) InsertBatch(ctx context.Context, messages []domain.ChatMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batchSizes = append(f.batchSizes, len(messages))

	inserted := 0
	for _, m := range messages {
		if f.failContent != "" && m.Content == f.failContent {
			continue
		}
		if _, ok := f.docs[m.MessageID]; ok {
			continue
		}
		f.docs[m.MessageID] = m
		f.order = append(f.order, m.MessageID)
		inserted++
	}
	return inserted, nil
}

func (f *fakeStore) MessagesByRoom(ctx context.Context, roomID string, limit, offset int) ([]domain.ChatMessage, error) {
	return nil, nil
}

func (f *fakeStore) UnreadMessages(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	return nil, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, messageID string, status domain.Status) error {
	return nil
}

func (f *fakeStore) MarkDelivered(ctx context.Context, userID string, messageIDs []string) (int64, error) {
	return 0, nil
}

func (f *fakeStore) RoomStats(ctx context.Context, roomID string) (*domain.RoomStats, error) {
	return &domain.RoomStats{}, nil
}

func (f *fakeStore) storedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakeStore) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batchSizes)
}

func testMessage(id, room, content string) domain.ChatMessage {
	return domain.ChatMessage{
		MessageID: id,
		RoomID:    room,
		SenderID:  "u1",
		Content:   content,
		Status:    domain.StatusPending,
	}
}

func TestBatcherFlushEmptyIsNoop(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	b := newBatcher(50, st)

	b.Flush(context.Background())
	req.Zero(st.batchCount())
}

func TestBatcherSizeThreshold(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	b := newBatcher(50, st)

	for i := 0; i < 49; i++ {
		full := b.Add(testMessage(fmt.Sprintf("m%d", i), "r1", "hi"))
		req.False(full, "buffer reported full at %d", i+1)
	}
	req.Equal(49, b.Len())

	full := b.Add(testMessage("m49", "r1", "hi"))
	req.True(full)

	b.Flush(context.Background())
	req.Equal(50, st.storedCount())
	req.Equal(1, st.batchCount())
	req.Zero(b.Len())
}

func TestBatcherTimerStyleFlushOfPartialBuffer(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	b := newBatcher(50, st)

	for i := 0; i < 49; i++ {
		b.Add(testMessage(fmt.Sprintf("m%d", i), "r1", "hi"))
	}

	// The periodic timer flushes whatever is resident, threshold or not.
	b.Flush(context.Background())
	req.Equal(49, st.storedCount())
	req.Equal(1, st.batchCount())

	// Nothing left: the next tick is a no-op, not a second write.
	b.Flush(context.Background())
	req.Equal(1, st.batchCount())
}

func TestBatcherIdempotentReplay(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	b := newBatcher(50, st)

	msg := testMessage("m1", "r1", "hi")
	b.Add(msg)
	b.Flush(context.Background())

	// Replay of the same event after a redelivery.
	b.Add(msg)
	b.Flush(context.Background())

	req.Equal(1, st.storedCount())
}

func TestBatcherPartialFailureIsolation(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	st.failContent = "poison"
	b := newBatcher(50, st)

	for i := 0; i < 4; i++ {
		b.Add(testMessage(fmt.Sprintf("m%d", i), "r1", "hi"))
	}
	b.Add(testMessage("m4", "r1", "poison"))

	b.Flush(context.Background())
	req.Equal(4, st.storedCount())
}

func TestBatcherPreservesOrder(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	b := newBatcher(50, st)

	for i := 0; i < 10; i++ {
		b.Add(testMessage(fmt.Sprintf("m%d", i), "r1", "hi"))
	}
	b.Flush(context.Background())

	for i := 10; i < 20; i++ {
		b.Add(testMessage(fmt.Sprintf("m%d", i), "r1", "hi"))
	}
	b.Flush(context.Background())

	st.mu.Lock()
	defer st.mu.Unlock()
	req.Len(st.order, 20)
	for i, id := range st.order {
		req.Equal(fmt.Sprintf("m%d", i), id, "reordered at position %d", i)
	}
}
