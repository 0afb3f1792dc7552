package producer

import (
	"context"
	"errors"

	"github.com/rohitgami11/MayaCode/internal/domain"
)

var errLogUnavailable = errors.New("event log unavailable")

// Unavailable is the producer wired in when the event log could not be
// reached at startup. Every submit fails with a PublishError so senders
// get an explicit error frame instead of silent loss, while the rest of
// the process keeps serving.
type Unavailable struct {
	Topic string
}

func (u Unavailable) Submit(ctx context.Context, raw domain.RawMessage) (*domain.Event, error) {
	return nil, &PublishError{Topic: u.Topic, Err: errLogUnavailable}
}

func (u Unavailable) Close() error {
	return nil
}
