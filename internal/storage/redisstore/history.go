package redisstore

import (
	"context"
	"fmt"

	"github.com/brydisanto/vibeoff/internal/vote"
	"github.com/bytedance/sonic"
	"github.com/go-redis/redis/v8"
)

// DefaultHistoryKey 是保存投票动态的Redis列表
const DefaultHistoryKey = "vibeoff:history"

// History 使用 LPUSH + LTRIM 保存最近的投票，实现 vote.History
type History struct {
	rdb *redis.Client
	key string
}

// NewHistory 创建Redis投票动态，key 为空时使用 DefaultHistoryKey
func NewHistory(rdb *redis.Client, key string) *History {
	if key == "" {
		key = DefaultHistoryKey
	}
	return &History{rdb: rdb, key: key}
}

func (h *History) Append(ctx context.Context, record vote.VoteRecord) error {
	raw, err := sonic.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化投票动态失败: %w", err)
	}

	// 在同一个事务中插入并截断，列表只保留最近 HistoryLimit 条
	pipe := h.rdb.TxPipeline()
	pipe.LPush(ctx, h.key, raw)
	pipe.LTrim(ctx, h.key, 0, vote.HistoryLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入投票动态失败: %w", err)
	}
	return nil
}

func (h *History) Recent(ctx context.Context, n int) ([]vote.VoteRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := h.rdb.LRange(ctx, h.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取投票动态失败: %w", err)
	}

	records := make([]vote.VoteRecord, 0, len(items))
	for _, item := range items {
		var record vote.VoteRecord
		if err := sonic.UnmarshalString(item, &record); err != nil {
			// 跳过无法解析的条目，不影响其余动态的展示
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
