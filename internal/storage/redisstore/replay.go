package redisstore

import (
	"context"
	"time"

	"github.com/brydisanto/vibeoff/internal/vote"
	"github.com/go-redis/redis/v8"
)

// DefaultReplayKeyPrefix 是已使用票据在Redis中的键名前缀
const DefaultReplayKeyPrefix = "vibeoff:pair:"

// ReplayGuard 用 SETNX 记录已使用的对决票据，键在 ttl 后自动过期
type ReplayGuard struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ vote.ReplayGuard = (*ReplayGuard)(nil)

// NewReplayGuard 创建防重放记录，ttl 小于等于0时使用 vote.TicketRetention
func NewReplayGuard(rdb *redis.Client, ttl time.Duration) *ReplayGuard {
	if ttl <= 0 {
		ttl = vote.TicketRetention
	}
	return &ReplayGuard{rdb: rdb, prefix: DefaultReplayKeyPrefix, ttl: ttl}
}

func (g *ReplayGuard) Claim(ctx context.Context, pairID string) (bool, error) {
	return g.rdb.SetNX(ctx, g.prefix+pairID, 1, g.ttl).Result()
}
