// Package sqlstore 使用gorm把数据集保存到关系型数据库 (sqlite 或 postgres)。
// 角色保存在 characters 表，用户配额保存在 metadata 键值表。
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/platform/database"
	"github.com/brydisanto/vibeoff/internal/platform/metadata"
	"github.com/brydisanto/vibeoff/internal/quota"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 是基于gorm的 dataset.Repository
type Store struct {
	db *gorm.DB
}

// New 创建仓库并迁移所需的表
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&CharacterRecord{}); err != nil {
		return nil, fmt.Errorf("无法迁移characters表: %w", err)
	}
	if err := metadata.Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Load 读取全部角色与用户配额
func (s *Store) Load(ctx context.Context) (*dataset.Dataset, error) {
	db := s.db.WithContext(ctx)

	// 1. 读取用户配额
	dateStr, hasDate, err := metadata.GetValue(db, metadata.LastPlayedDateKey)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", metadata.LastPlayedDateKey, err)
	}

	var records []CharacterRecord
	if err := db.Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("读取角色失败: %w", err)
	}

	// 2. 完全为空时视为尚未初始化
	if !hasDate && len(records) == 0 {
		return nil, dataset.ErrNotFound
	}
	if !hasDate {
		return nil, fmt.Errorf("%w: missing %s", dataset.ErrMalformed, metadata.LastPlayedDateKey)
	}

	date, err := quota.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataset.ErrMalformed, err)
	}
	votes, err := metadata.GetInt(db, metadata.VotesTodayKey)
	if err != nil {
		if errors.Is(err, metadata.ErrMissing) {
			return nil, fmt.Errorf("%w: %w", dataset.ErrMalformed, err)
		}
		return nil, fmt.Errorf("读取 %s 失败: %w", metadata.VotesTodayKey, err)
	}

	characters := make(character.Standings, 0, len(records))
	for _, r := range records {
		characters = append(characters, r.toCharacter())
	}

	return &dataset.Dataset{
		Characters: characters,
		User:       quota.UserState{LastPlayedDate: date, VotesToday: votes},
	}, nil
}

// Save 在一个事务中整体写入数据集，不在数据集中的角色会被删除
func (s *Store) Save(ctx context.Context, ds *dataset.Dataset) error {
	records := make([]CharacterRecord, 0, len(ds.Characters))
	ids := make([]int, 0, len(ds.Characters))
	for i, c := range ds.Characters {
		records = append(records, toRecord(i, c))
		ids = append(ids, c.ID)
	}

	const maxRetry = 3
	var err error
	for i := 0; i < maxRetry; i++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// a. 删除已不存在的角色
			stale := tx.Where("1 = 1")
			if len(ids) > 0 {
				stale = tx.Where("id NOT IN ?", ids)
			}
			if err := stale.Delete(&CharacterRecord{}).Error; err != nil {
				return fmt.Errorf("删除过期角色失败: %w", err)
			}

			// b. 批量写入角色
			// OnConflict 模拟 UPDATE 操作，冲突的判断依据是主键id
			if len(records) > 0 {
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "id"}},
					DoUpdates: clause.AssignmentColumns([]string{"position", "name", "url", "image_url", "wins", "losses", "matches", "updated_at"}),
				}).Create(&records).Error
				if err != nil {
					return fmt.Errorf("批量更新角色数据失败: %w", err)
				}
			}

			// c. 更新用户配额
			if err := metadata.SetValue(tx, metadata.LastPlayedDateKey, ds.User.LastPlayedDate.String()); err != nil {
				return fmt.Errorf("更新元数据 %s 失败: %w", metadata.LastPlayedDateKey, err)
			}
			if err := metadata.SetInt(tx, metadata.VotesTodayKey, ds.User.VotesToday); err != nil {
				return fmt.Errorf("更新元数据 %s 失败: %w", metadata.VotesTodayKey, err)
			}
			return nil
		})

		if err == nil || !database.IsRetryableError(err) {
			break
		}
	}
	return err
}
