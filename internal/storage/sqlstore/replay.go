package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/brydisanto/vibeoff/internal/platform/database"
	"github.com/brydisanto/vibeoff/internal/vote"
	"gorm.io/gorm"
)

// UsedPairID 定义了已使用的PairID在数据库中的存储结构
type UsedPairID struct {
	PairID    string    `gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `gorm:"index"`
}

// ReplayGuard 把已使用的对决票据保存在 used_pair_ids 表中，依靠主键保证唯一
type ReplayGuard struct {
	db        *gorm.DB
	retention time.Duration
}

var _ vote.ReplayGuard = (*ReplayGuard)(nil)

// NewReplayGuard 创建防重放记录并迁移 used_pair_ids 表
func NewReplayGuard(db *gorm.DB, retention time.Duration) (*ReplayGuard, error) {
	if err := db.AutoMigrate(&UsedPairID{}); err != nil {
		return nil, fmt.Errorf("无法迁移used_pair_ids表: %w", err)
	}
	if retention <= 0 {
		retention = vote.TicketRetention
	}
	return &ReplayGuard{db: db, retention: retention}, nil
}

func (g *ReplayGuard) Claim(ctx context.Context, pairID string) (bool, error) {
	db := g.db.WithContext(ctx)

	// 插入成功即为首次使用，主键冲突说明是重放
	if err := db.Create(&UsedPairID{PairID: pairID}).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("写入已使用的PairID失败: %w", err)
	}
	return true, nil
}

// Prune 删除超过保留时长的记录，返回删除的行数
func (g *ReplayGuard) Prune(ctx context.Context, now time.Time) (int64, error) {
	result := g.db.WithContext(ctx).
		Where("created_at < ?", now.Add(-g.retention)).
		Delete(&UsedPairID{})
	return result.RowsAffected, result.Error
}
