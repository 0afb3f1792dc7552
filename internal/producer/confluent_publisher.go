package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/rohitgami11/MayaCode/internal/config"
	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

// ConfluentPublisher publishes chat events to Kafka, keyed by room ID so
// that events within one room land on one partition in send order.
type ConfluentPublisher struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

func NewConfluentPublisher(cfg config.KafkaConfig) (*ConfluentPublisher, error) {
	// Ensure both topics exist with the desired partition count. The
	// persistence topic is declared by the topic contract even though the
	// core flow only produces to the chat topic.
	for _, topic := range []string{cfg.ChatTopic, cfg.PersistenceTopic} {
		if err := ensureTopic(cfg.Brokers, topic, cfg.Partitions); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldTopic, topic).Msg("failed to ensure topic (may already exist)")
		}
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentPublisher{
		producer: p,
		topic:    cfg.ChatTopic,
		doneCh:   make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentPublisher) deliveryReportHandler() {
	for e := range cp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				l := log.L()
				l.Error().Err(ev.TopicPartition.Error).Msg("kafka delivery failed")
			}
		}
	}
	close(cp.doneCh)
}

func (cp *ConfluentPublisher) PublishEvent(ctx context.Context, event *domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return &PublishError{Topic: cp.topic, Err: fmt.Errorf("failed to marshal event: %w", err)}
	}

	// Room ID as key gives per-room ordering on the partition.
	err = cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &cp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.RoomID),
		Value: value,
	}, nil)
	if err != nil {
		return &PublishError{Topic: cp.topic, Err: err}
	}

	return nil
}

func (cp *ConfluentPublisher) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
