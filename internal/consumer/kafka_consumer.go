package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/rohitgami11/MayaCode/internal/config"
	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/internal/store"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

type consumerState int32

const drainTimeout = 10 * time.Second

const (
	stateStopped consumerState = iota
	stateSubscribing
	stateRunning
	stateDraining
)

func (s consumerState) String() string {
	switch s {
	case stateSubscribing:
		return "subscribing"
	case stateRunning:
		return "running"
	case stateDraining:
		return "draining"
	default:
		return "stopped"
	}
}

// Status is a point-in-time snapshot of the consumer, exposed over the
// health endpoint.
type Status struct {
	Running       bool          `json:"isRunning"`
	BufferSize    int           `json:"bufferSize"`
	BatchSize     int           `json:"batchSize"`
	FlushInterval time.Duration `json:"flushInterval"`
}

// pollSource is the run loop's view of the broker connection.
// *kafka.Consumer satisfies it.
type pollSource interface {
	Poll(timeoutMs int) kafka.Event
	Close() error
}

// Consumer subscribes to the chat-events topic, buffers events in memory
// and flushes them to the message store in batches. One worker owns the
// buffer: the poll loop, the flush timer and the drain on shutdown all run
// on the same goroutine, so only one flush proceeds at a time.
type Consumer struct {
	kafkaCfg config.KafkaConfig
	cfg      config.ConsumerConfig
	batcher  *batcher

	mu       sync.Mutex
	state    consumerState
	consumer pollSource
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewConsumer(kafkaCfg config.KafkaConfig, cfg config.ConsumerConfig, st store.MessageStore) *Consumer {
	return &Consumer{
		kafkaCfg: kafkaCfg,
		cfg:      cfg,
		batcher:  newBatcher(cfg.BatchSize, st),
		state:    stateStopped,
	}
}

// StartConsuming subscribes to the chat topic from the latest offset and
// starts the poll loop. Calling it while already running is a no-op with a
// warning. Connection errors are returned to the caller, which treats chat
// ingestion as a degraded capability rather than a fatal startup error.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := log.L()

	if c.state != stateStopped {
		l.Warn().Str("state", c.state.String()).Msg("consumer already running, start ignored")
		return nil
	}
	c.state = stateSubscribing

	kc, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       c.kafkaCfg.Brokers,
		"group.id":                c.kafkaCfg.GroupID,
		"auto.offset.reset":       c.kafkaCfg.AutoOffsetReset,
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
		"max.poll.interval.ms":    c.kafkaCfg.MaxPollIntervalMs,
		"session.timeout.ms":      c.kafkaCfg.SessionTimeoutMs,
		"heartbeat.interval.ms":   c.kafkaCfg.HeartbeatIntervalMs,
	})
	if err != nil {
		c.state = stateStopped
		return fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := kc.Subscribe(c.kafkaCfg.ChatTopic, nil); err != nil {
		kc.Close()
		c.state = stateStopped
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.kafkaCfg.ChatTopic, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.consumer = kc
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state = stateRunning

	go c.run(runCtx)

	l.Info().
		Str(log.FieldTopic, c.kafkaCfg.ChatTopic).
		Str("group", c.kafkaCfg.GroupID).
		Int(log.FieldBatchSize, c.cfg.BatchSize).
		Dur("flush_interval", c.cfg.FlushInterval).
		Msg("batch consumer started")

	return nil
}

// StopConsuming drains the resident buffer and disconnects. Calling it
// while stopped is a no-op with a warning.
func (c *Consumer) StopConsuming() error {
	c.mu.Lock()

	l := log.L()

	if c.state != stateRunning {
		state := c.state
		c.mu.Unlock()
		l.Warn().Str("state", state.String()).Msg("consumer not running, stop ignored")
		return nil
	}
	c.state = stateDraining
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done

	c.mu.Lock()
	err := c.consumer.Close()
	c.consumer = nil
	c.state = stateStopped
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}

	l.Info().Msg("batch consumer stopped")
	return nil
}

// Status reports the current consumer state.
func (c *Consumer) Status() Status {
	c.mu.Lock()
	running := c.state == stateRunning
	c.mu.Unlock()

	return Status{
		Running:       running,
		BufferSize:    c.batcher.Len(),
		BatchSize:     c.cfg.BatchSize,
		FlushInterval: c.cfg.FlushInterval,
	}
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	l := log.L()

	for {
		select {
		case <-ctx.Done():
			c.drain()
			return
		case <-ticker.C:
			c.batcher.Flush(ctx)
		default:
		}

		ev := c.consumer.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			c.handleMessage(ctx, e)
		case kafka.Error:
			l.Error().
				Int("code", int(e.Code())).
				Bool("fatal", e.IsFatal()).
				Msgf("kafka error: %v", e)
			if e.IsFatal() {
				c.drain()
				return
			}
		case kafka.OffsetsCommitted:
			// Normal auto-commit acknowledgement
		default:
			// Ignore other events (rebalance, etc.)
		}
	}
}

// drain flushes the resident buffer with a bounded deadline so shutdown
// cannot hang on a slow store. No event loss on graceful shutdown as
// long as the store answers within the deadline.
func (c *Consumer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	c.batcher.Flush(ctx)
}

// handleMessage parses one event and buffers it. A malformed event is
// logged and dropped so it cannot block the partition.
func (c *Consumer) handleMessage(ctx context.Context, msg *kafka.Message) {
	l := log.L()

	var event domain.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		l.Error().Err(err).
			Int32("partition", msg.TopicPartition.Partition).
			Str("offset", msg.TopicPartition.Offset.String()).
			Msg("dropping malformed event")
		return
	}

	if event.ID == "" {
		l.Error().
			Int32("partition", msg.TopicPartition.Partition).
			Str("offset", msg.TopicPartition.Offset.String()).
			Msg("dropping event without message id")
		return
	}

	if c.batcher.Add(event.ToChatMessage()) {
		c.batcher.Flush(ctx)
	}
}
