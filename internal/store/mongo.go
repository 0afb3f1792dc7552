package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rohitgami11/MayaCode/internal/config"
	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

const connectTimeout = 10 * time.Second

// MongoStore implements MessageStore on a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	retention  int32
}

func NewMongoStore(ctx context.Context, cfg config.MongoConfig) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		retention:  cfg.RetentionSeconds,
	}, nil
}

// EnsureIndexes creates the query and retention indexes. The unique index
// on messageId is what makes batch replays idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "messageId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipients", Value: 1}, {Key: "status", Value: 1}}},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(s.retention),
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertBatch(ctx context.Context, messages []domain.ChatMessage) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(messages))
	for i := range messages {
		models = append(models, mongo.NewInsertOneModel().SetDocument(messages[i]))
	}

	l := log.Ctx(ctx)

	result, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	inserted := 0
	if result != nil {
		inserted = int(result.InsertedCount)
	}

	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			// Partial failure: keep the successes, log the rest. Duplicate
			// keys are replays of already-stored messages, not failures.
			for _, we := range bwe.WriteErrors {
				if we.Code == 11000 {
					l.Debug().Int("index", we.Index).Msg("duplicate message id, insert skipped")
					continue
				}
				l.Error().
					Int("index", we.Index).
					Int("code", we.Code).
					Str("error", we.Message).
					Msg("batch insert write error")
			}
		} else {
			l.Error().Err(err).Int(log.FieldBatchSize, len(messages)).Msg("batch insert failed")
		}
	}

	if inserted == 0 && len(messages) > 0 {
		// Surface the underlying validation/connectivity error distinctly
		// with a single diagnostic insert, then carry on.
		if _, diagErr := s.collection.InsertOne(ctx, messages[0]); diagErr != nil {
			if !mongo.IsDuplicateKeyError(diagErr) {
				l.Error().Err(diagErr).
					Str(log.FieldMessageID, messages[0].MessageID).
					Msg("diagnostic single insert failed")
			}
		} else {
			inserted = 1
			l.Info().Str(log.FieldMessageID, messages[0].MessageID).Msg("diagnostic single insert succeeded")
		}
	}

	return inserted, nil
}

func (s *MongoStore) MessagesByRoom(ctx context.Context, roomID string, limit, offset int) ([]domain.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query room messages: %w", err)
	}

	var messages []domain.ChatMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode room messages: %w", err)
	}

	// Newest page, returned in chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (s *MongoStore) UnreadMessages(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	filter := bson.M{
		"recipients": userID,
		"status":     bson.M{"$ne": domain.StatusDelivered},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query unread messages: %w", err)
	}

	var messages []domain.ChatMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode unread messages: %w", err)
	}

	return messages, nil
}

func (s *MongoStore) UpdateStatus(ctx context.Context, messageID string, status domain.Status) error {
	update := bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}}

	_, err := s.collection.UpdateOne(ctx, bson.M{"messageId": messageID}, update)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}

func (s *MongoStore) MarkDelivered(ctx context.Context, userID string, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	filter := bson.M{
		"messageId":  bson.M{"$in": messageIDs},
		"recipients": userID,
	}
	update := bson.M{"$set": bson.M{
		"status":    domain.StatusDelivered,
		"updatedAt": time.Now().UTC(),
	}}

	result, err := s.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages delivered: %w", err)
	}
	return result.ModifiedCount, nil
}

func (s *MongoStore) RoomStats(ctx context.Context, roomID string) (*domain.RoomStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"roomId": roomID}}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"totalMessages": bson.M{"$sum": 1},
			"totalDelivered": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", domain.StatusDelivered}}, 1, 0},
			}},
			"totalRead": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$status", domain.StatusRead}}, 1, 0},
			}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate room stats: %w", err)
	}

	var results []domain.RoomStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode room stats: %w", err)
	}

	if len(results) == 0 {
		return &domain.RoomStats{}, nil
	}
	return &results[0], nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
