package vote

import (
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/quota"
)

// Processor 协调配额与战绩，把一张选票应用到内存中的数据集上。
// 它不负责持久化，调用方根据返回值决定保存什么。
type Processor struct {
	tracker *quota.Tracker
}

// NewProcessor 创建一个投票处理器
func NewProcessor(tracker *quota.Tracker) *Processor {
	return &Processor{tracker: tracker}
}

// Apply 按以下顺序处理一张选票:
//  1. 跨日检查; 配额用尽时返回 quota.ErrQuotaExceeded
//  2. 更新胜负; 失败时原样返回错误，不消耗配额
//  3. 消耗一次配额
//
// rolled 报告第1步是否发生了跨日重置，即使返回了错误，调用方也必须持久化这次重置。
func (p *Processor) Apply(ds *dataset.Dataset, winnerID, loserID int, today quota.Date) (rolled bool, err error) {
	state, rolled := p.tracker.CheckAndRoll(&ds.User, today)
	if state == quota.StateExhausted {
		return rolled, quota.ErrQuotaExceeded
	}

	if err := ds.Characters.ApplyOutcome(winnerID, loserID); err != nil {
		return rolled, err
	}

	p.tracker.Consume(&ds.User)
	return rolled, nil
}
