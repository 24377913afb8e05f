// Package notifications delivers notification records to live sockets and message buses.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"socialhub/internal/models"
	"socialhub/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	userChannelGlob   = userChannelPrefix + "*"
)

// EventNotification is the envelope type for a freshly created notification.
const EventNotification = "notification"

// Event is the JSON envelope pushed to sockets and buses.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EncodeNotification wraps a notification view in the push envelope.
func EncodeNotification(view *models.NotificationView) ([]byte, error) {
	data, err := json.Marshal(Event{Type: EventNotification, Payload: view})
	if err != nil {
		return nil, fmt.Errorf("marshal notification %d: %w", view.ID, err)
	}
	return data, nil
}

// Notifier publishes notifications into per-identity Redis channels so that
// every API instance can forward them to its own sockets.
type Notifier struct {
	rdb      *redis.Client
	presence *Presence
}

// NewNotifier creates a Notifier. A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// WithPresence makes the notifier skip targets with no live socket anywhere.
func (n *Notifier) WithPresence(p *Presence) *Notifier {
	n.presence = p
	return n
}

// Channel names this delivery path in metrics.
func (n *Notifier) Channel() string { return "redis" }

// PublishNotification publishes view on its target's channel.
func (n *Notifier) PublishNotification(ctx context.Context, view *models.NotificationView) error {
	if n.rdb == nil || view == nil {
		return nil
	}
	if n.presence != nil && !n.presence.IsOnline(ctx, view.TargetID) {
		return nil
	}
	payload, err := EncodeNotification(view)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, UserChannel(view.TargetID), payload).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("publish").Inc()
		return fmt.Errorf("publish notification %d: %w", view.ID, err)
	}
	return nil
}

// StartSubscriber subscribes to every identity channel and calls onMessage for
// each payload until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(identityID uint, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelGlob)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		observability.RedisErrorRate.WithLabelValues("subscribe").Inc()
		return fmt.Errorf("subscribe %s: %w", userChannelGlob, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				identityID, ok := ParseUserChannel(msg.Channel)
				if !ok {
					observability.GlobalLogger.WarnContext(ctx, "invalid notification channel", "channel", msg.Channel)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.ErrorContext(ctx, "panic in notification subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(identityID, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for an identity.
func UserChannel(identityID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(identityID), 10)
}

// ParseUserChannel is the inverse of UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
