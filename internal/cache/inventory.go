package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	IdentityKeyPrefix = "identity:%d"
	SubjectKeyPrefix  = "identity:subject:%s"
	UnreadKeyPrefix   = "notifications:unread:%d"
)

const (
	IdentityTTL = 5 * time.Minute
	SubjectTTL  = 15 * time.Minute
	UnreadTTL   = time.Minute
)

// IdentityKey caches an identity's profile row. Derived counts are not stored.
func IdentityKey(identityID uint) string {
	return fmt.Sprintf(IdentityKeyPrefix, identityID)
}

// SubjectKey caches the auth subject to identity ID mapping used on every request.
func SubjectKey(subject string) string {
	return fmt.Sprintf(SubjectKeyPrefix, subject)
}

func UnreadKey(identityID uint) string {
	return fmt.Sprintf(UnreadKeyPrefix, identityID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateIdentity(ctx context.Context, identityID uint) {
	Invalidate(ctx, IdentityKey(identityID))
}

func InvalidateUnread(ctx context.Context, identityID uint) {
	Invalidate(ctx, UnreadKey(identityID))
}
