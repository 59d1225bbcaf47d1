package sqlstore

import (
	"context"
	"fmt"

	"github.com/brydisanto/vibeoff/internal/vote"
	"gorm.io/gorm"
)

// History 把投票动态保存在 vote_records 表中，实现 vote.History
type History struct {
	db *gorm.DB
}

// NewHistory 创建投票动态并迁移 vote_records 表
func NewHistory(db *gorm.DB) (*History, error) {
	if err := db.AutoMigrate(&VoteRecordModel{}); err != nil {
		return nil, fmt.Errorf("无法迁移vote_records表: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) Append(ctx context.Context, record vote.VoteRecord) error {
	model := VoteRecordModel{
		WinnerID:   record.WinnerID,
		LoserID:    record.LoserID,
		WinnerName: record.WinnerName,
		LoserName:  record.LoserName,
		VotedAt:    record.VotedAt,
	}
	return h.db.WithContext(ctx).Create(&model).Error
}

func (h *History) Recent(ctx context.Context, n int) ([]vote.VoteRecord, error) {
	var models []VoteRecordModel
	err := h.db.WithContext(ctx).
		Order("voted_at DESC").
		Order("id DESC").
		Limit(n).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]vote.VoteRecord, 0, len(models))
	for _, m := range models {
		records = append(records, vote.VoteRecord{
			WinnerID:   m.WinnerID,
			LoserID:    m.LoserID,
			WinnerName: m.WinnerName,
			LoserName:  m.LoserName,
			VotedAt:    m.VotedAt,
		})
	}
	return records, nil
}
