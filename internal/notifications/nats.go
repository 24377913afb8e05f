package notifications

import (
	"context"
	"fmt"

	"socialhub/internal/models"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the notification kind to form a NATS subject.
const DefaultSubjectPrefix = "socialhub.notifications"

// BusPublisher mirrors notifications onto NATS for out-of-process consumers
// such as mobile push or email digests.
type BusPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewBusPublisher creates a BusPublisher. A nil connection disables it.
func NewBusPublisher(nc *nats.Conn, prefix string) *BusPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &BusPublisher{nc: nc, prefix: prefix}
}

// Channel names this delivery path in metrics.
func (p *BusPublisher) Channel() string { return "nats" }

// Subject returns the subject a notification of kind is published on.
func (p *BusPublisher) Subject(kind models.NotificationKind) string {
	return p.prefix + "." + string(kind)
}

// PublishNotification publishes view on the subject for its kind.
func (p *BusPublisher) PublishNotification(ctx context.Context, view *models.NotificationView) error {
	if p.nc == nil || view == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeNotification(view)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.Subject(view.Kind), payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.Subject(view.Kind), err)
	}
	return nil
}
