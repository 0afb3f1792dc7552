package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/require"

	"github.com/rohitgami11/MayaCode/internal/config"
	"github.com/rohitgami11/MayaCode/internal/domain"
)

func testConsumer(st *fakeStore, batchSize int) *Consumer {
	return NewConsumer(
		config.KafkaConfig{ChatTopic: "chat-messages", GroupID: "test-group"},
		config.ConsumerConfig{BatchSize: batchSize, FlushInterval: 2 * time.Second},
		st,
	)
}

func eventValue(t *testing.T, id, room, content string) []byte {
	t.Helper()
	data, err := json.Marshal(domain.Event{
		ID:        id,
		RoomID:    room,
		SenderID:  "u1",
		Content:   content,
		Status:    domain.StatusPending,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	return data
}

func TestHandleMessageBuffersValidEvent(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	c := testConsumer(st, 50)

	c.handleMessage(context.Background(), &kafka.Message{Value: eventValue(t, "m1", "r1", "hi")})

	req.Equal(1, c.batcher.Len())
	req.Zero(st.storedCount(), "event must not hit the store before a flush")
}

func TestHandleMessageDropsMalformedEvent(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	c := testConsumer(st, 50)

	c.handleMessage(context.Background(), &kafka.Message{Value: []byte("{not json")})
	c.handleMessage(context.Background(), &kafka.Message{Value: []byte(`{"roomId":"r1"}`)}) // missing id

	req.Zero(c.batcher.Len())

	// The partition is not blocked: the next valid event still lands.
	c.handleMessage(context.Background(), &kafka.Message{Value: eventValue(t, "m1", "r1", "hi")})
	req.Equal(1, c.batcher.Len())
}

func TestHandleMessageFlushesAtThreshold(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	c := testConsumer(st, 2)

	c.handleMessage(context.Background(), &kafka.Message{Value: eventValue(t, "m1", "r1", "hi")})
	req.Zero(st.storedCount())

	c.handleMessage(context.Background(), &kafka.Message{Value: eventValue(t, "m2", "r1", "hi")})
	req.Equal(2, st.storedCount(), "reaching the batch size must flush immediately")
	req.Zero(c.batcher.Len())
}

func TestStopWhenNotRunningIsNoop(t *testing.T) {
	req := require.New(t)

	c := testConsumer(newFakeStore(), 50)
	req.NoError(c.StopConsuming())
	req.NoError(c.StopConsuming())
}

// fakePollSource feeds the run loop canned broker events.
type fakePollSource struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (f *fakePollSource) add(ev kafka.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakePollSource) Poll(timeoutMs int) kafka.Event {
	f.mu.Lock()
	if len(f.events) > 0 {
		ev := f.events[0]
		f.events = f.events[1:]
		f.mu.Unlock()
		return ev
	}
	f.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return nil
}

func (f *fakePollSource) Close() error { return nil }

func startRunLoop(c *Consumer, src *fakePollSource) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	c.consumer = src
	c.done = make(chan struct{})
	go c.run(ctx)
	return cancel
}

func TestRunLoopTimerFlushesPartialBuffer(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	c := NewConsumer(
		config.KafkaConfig{ChatTopic: "chat-messages", GroupID: "test-group"},
		config.ConsumerConfig{BatchSize: 50, FlushInterval: 100 * time.Millisecond},
		st,
	)

	src := &fakePollSource{}
	for i := 0; i < 49; i++ {
		src.add(&kafka.Message{Value: eventValue(t, fmt.Sprintf("m%d", i), "r1", "hi")})
	}

	cancel := startRunLoop(c, src)

	// Below the size threshold, only the ticker can flush.
	req.Eventually(func() bool { return st.storedCount() == 49 }, 2*time.Second, 10*time.Millisecond)
	req.Equal(1, st.batchCount())

	// The buffer is empty now; later ticks must not write again.
	time.Sleep(250 * time.Millisecond)
	req.Equal(1, st.batchCount())

	cancel()
	<-c.done
	req.Equal(1, st.batchCount(), "drain of an empty buffer is a no-op")
}

func TestRunLoopFlushesAtThresholdBeforeTimer(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	c := NewConsumer(
		config.KafkaConfig{ChatTopic: "chat-messages", GroupID: "test-group"},
		config.ConsumerConfig{BatchSize: 2, FlushInterval: time.Minute},
		st,
	)

	src := &fakePollSource{}
	src.add(&kafka.Message{Value: eventValue(t, "m1", "r1", "hi")})
	src.add(&kafka.Message{Value: eventValue(t, "m2", "r1", "hi")})

	cancel := startRunLoop(c, src)

	req.Eventually(func() bool { return st.storedCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	req.Equal(1, st.batchCount())

	cancel()
	<-c.done
}

func TestRunLoopDrainsOnStop(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	c := NewConsumer(
		config.KafkaConfig{ChatTopic: "chat-messages", GroupID: "test-group"},
		config.ConsumerConfig{BatchSize: 50, FlushInterval: time.Minute},
		st,
	)

	src := &fakePollSource{}
	for i := 0; i < 10; i++ {
		src.add(&kafka.Message{Value: eventValue(t, fmt.Sprintf("m%d", i), "r1", "hi")})
	}

	cancel := startRunLoop(c, src)

	req.Eventually(func() bool { return c.batcher.Len() == 10 }, 2*time.Second, 10*time.Millisecond)
	req.Zero(st.storedCount(), "neither trigger has fired yet")

	cancel()
	<-c.done

	req.Equal(10, st.storedCount(), "resident events must be flushed on shutdown")
	req.Equal(1, st.batchCount())
}

func TestStatusWhenStopped(t *testing.T) {
	req := require.New(t)

	st := newFakeStore()
	c := testConsumer(st, 50)
	c.batcher.Add(testMessage("m1", "r1", "hi"))

	status := c.Status()
	req.False(status.Running)
	req.Equal(1, status.BufferSize)
	req.Equal(50, status.BatchSize)
	req.Equal(2*time.Second, status.FlushInterval)
}
