package fanout

import (
	"context"
	"sync"

	"github.com/rohitgami11/MayaCode/pkg/log"
)

// NoopPubSub stands in when the broker is unconfigured or unreachable.
// Subscribe is a silent no-op; Publish reports ErrBrokerUnavailable so
// the gateway falls back to direct same-instance room broadcast.
type NoopPubSub struct {
	warnOnce sync.Once
}

func NewNoopPubSub() *NoopPubSub {
	return &NoopPubSub{}
}

func (n *NoopPubSub) warn() {
	n.warnOnce.Do(func() {
		l := log.L()
		l.Warn().Msg("fan-out broker not configured, cross-instance delivery disabled")
	})
}

func (n *NoopPubSub) Publish(ctx context.Context, channel string, payload interface{}) error {
	n.warn()
	return ErrBrokerUnavailable
}

func (n *NoopPubSub) Subscribe(ctx context.Context, channel string, handler Handler) error {
	n.warn()
	return nil
}

func (n *NoopPubSub) Close() error {
	return nil
}
