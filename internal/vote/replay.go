package vote

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TicketRetention 是已使用票据的保留时长，超过后记录可以被清理
const TicketRetention = 24 * time.Hour

// ErrTicketReused 表示对决票据已经被用于一次投票
var ErrTicketReused = errors.New("matchup ticket already used")

// ReplayGuard 记录已经使用过的对决票据，防止同一张票据重复投票
type ReplayGuard interface {
	// Claim 原子地把 pairID 标记为已使用，首次使用时返回 true
	Claim(ctx context.Context, pairID string) (bool, error)
}

// MemoryReplayGuard 是进程内的 ReplayGuard，用于没有数据库或Redis的部署
type MemoryReplayGuard struct {
	mu        sync.Mutex
	used      map[string]time.Time
	retention time.Duration
	now       func() time.Time
}

// NewMemoryReplayGuard 创建内存防重放记录，retention 小于等于0时使用 TicketRetention
func NewMemoryReplayGuard(retention time.Duration) *MemoryReplayGuard {
	if retention <= 0 {
		retention = TicketRetention
	}
	return &MemoryReplayGuard{
		used:      make(map[string]time.Time),
		retention: retention,
		now:       time.Now,
	}
}

func (g *MemoryReplayGuard) Claim(_ context.Context, pairID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for id, usedAt := range g.used {
		if now.Sub(usedAt) > g.retention {
			delete(g.used, id)
		}
	}

	if _, ok := g.used[pairID]; ok {
		return false, nil
	}
	g.used[pairID] = now
	return true, nil
}
