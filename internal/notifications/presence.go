package notifications

import (
	"context"
	"strconv"
	"sync"
	"time"

	"socialhub/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOnlineSetKey   = "ws:online_identities"
	defaultLastSeenPrefix = "ws:last_seen:"
	defaultLastSeenTTL    = 90 * time.Second
	defaultReaperInterval = 60 * time.Second
)

// PresenceConfig controls where presence lives in Redis and how long it lasts.
type PresenceConfig struct {
	OnlineSetKey   string
	LastSeenPrefix string
	LastSeenTTL    time.Duration
	ReaperInterval time.Duration
}

// Presence tracks which identities hold a live socket. Local counts answer for
// this instance; Redis answers for the whole fleet.
type Presence struct {
	rdb *redis.Client

	mu     sync.RWMutex
	local  map[uint]int
	online string
	prefix string
	ttl    time.Duration
	every  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresence creates a tracker and starts the Redis reaper when rdb is set.
func NewPresence(rdb *redis.Client, cfg PresenceConfig) *Presence {
	p := &Presence{
		rdb:    rdb,
		local:  make(map[uint]int),
		online: defaultOnlineSetKey,
		prefix: defaultLastSeenPrefix,
		ttl:    defaultLastSeenTTL,
		every:  defaultReaperInterval,
		stopCh: make(chan struct{}),
	}
	if cfg.OnlineSetKey != "" {
		p.online = cfg.OnlineSetKey
	}
	if cfg.LastSeenPrefix != "" {
		p.prefix = cfg.LastSeenPrefix
	}
	if cfg.LastSeenTTL > 0 {
		p.ttl = cfg.LastSeenTTL
	}
	if cfg.ReaperInterval > 0 {
		p.every = cfg.ReaperInterval
	}
	if p.rdb != nil {
		go p.reaperLoop()
	}
	return p
}

// Stop halts the reaper.
func (p *Presence) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Presence) Register(ctx context.Context, identityID uint) {
	p.mu.Lock()
	p.local[identityID]++
	p.mu.Unlock()
	p.Touch(ctx, identityID)
}

func (p *Presence) Unregister(ctx context.Context, identityID uint) {
	p.mu.Lock()
	n := p.local[identityID] - 1
	if n > 0 {
		p.local[identityID] = n
		p.mu.Unlock()
		return
	}
	delete(p.local, identityID)
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	// another instance may still hold a socket; it refreshes last-seen on its own
	uid := strconv.FormatUint(uint64(identityID), 10)
	if err := p.rdb.Del(ctx, p.lastSeenKey(identityID)).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("presence_del").Inc()
	}
	_ = p.rdb.SRem(ctx, p.online, uid).Err()
}

// Touch refreshes the identity's last-seen marker.
func (p *Presence) Touch(ctx context.Context, identityID uint) {
	if p.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(identityID), 10)
	pipe := p.rdb.TxPipeline()
	pipe.SAdd(ctx, p.online, uid)
	pipe.SetEx(ctx, p.lastSeenKey(identityID), strconv.FormatInt(time.Now().Unix(), 10), p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisErrorRate.WithLabelValues("presence_touch").Inc()
		observability.GlobalLogger.WarnContext(ctx, "presence touch failed",
			"identity_id", identityID, "error", err.Error())
	}
}

// IsOnline reports whether identityID has a socket here or, per Redis, anywhere.
// A Redis failure answers true so that deliveries are not lost.
func (p *Presence) IsOnline(ctx context.Context, identityID uint) bool {
	p.mu.RLock()
	n := p.local[identityID]
	p.mu.RUnlock()
	if n > 0 {
		return true
	}
	if p.rdb == nil {
		return false
	}
	exists, err := p.rdb.Exists(ctx, p.lastSeenKey(identityID)).Result()
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("presence_exists").Inc()
		return true
	}
	return exists > 0
}

// reapOnce drops online-set members whose last-seen marker expired.
func (p *Presence) reapOnce(ctx context.Context) int {
	if p.rdb == nil {
		return 0
	}
	members, err := p.rdb.SMembers(ctx, p.online).Result()
	if err != nil {
		return 0
	}
	reaped := 0
	for _, raw := range members {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			_ = p.rdb.SRem(ctx, p.online, raw).Err()
			continue
		}
		exists, err := p.rdb.Exists(ctx, p.lastSeenKey(uint(id))).Result()
		if err != nil || exists > 0 {
			continue
		}
		_ = p.rdb.SRem(ctx, p.online, raw).Err()
		reaped++
	}
	return reaped
}

func (p *Presence) reaperLoop() {
	ticker := time.NewTicker(p.every)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce(context.Background())
		}
	}
}

func (p *Presence) lastSeenKey(identityID uint) string {
	return p.prefix + strconv.FormatUint(uint64(identityID), 10)
}
