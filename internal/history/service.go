package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/internal/store"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

// Service serves paginated room history with a read-through cache.
// Concurrent identical reads are collapsed with singleflight so a hot
// room page hits the store once.
type Service struct {
	store    store.MessageStore
	cache    MessageCache
	cacheTTL time.Duration
	sf       singleflight.Group
}

func NewService(st store.MessageStore, cache MessageCache, cacheTTL time.Duration) *Service {
	return &Service{
		store:    st,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (s *Service) RoomHistory(ctx context.Context, roomID string, limit, offset int) ([]domain.ChatMessage, error) {
	// The latest page changes on every send; fetch it directly so stale
	// or empty pages are never cached.
	if offset == 0 {
		return s.store.MessagesByRoom(ctx, roomID, limit, offset)
	}

	key := s.cache.BuildKey(roomID, limit, offset)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.fetchWithCache(ctx, roomID, limit, offset, key)
	})
	if err != nil {
		return nil, err
	}

	messages, ok := result.([]domain.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return messages, nil
}

func (s *Service) fetchWithCache(ctx context.Context, roomID string, limit, offset int, key string) ([]domain.ChatMessage, error) {
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("history cache get error")
	}

	messages, err := s.store.MessagesByRoom(ctx, roomID, limit, offset)
	if err != nil {
		return nil, err
	}

	// Cache writes must not block the response.
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Set(cacheCtx, key, messages, s.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("history cache set error")
		}
	}()

	return messages, nil
}
