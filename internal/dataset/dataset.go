package dataset

import (
	"errors"
	"fmt"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/quota"
)

var (
	// ErrNotFound 表示后端中尚不存在任何持久化的数据集
	ErrNotFound = errors.New("dataset not found")
	// ErrMalformed 表示持久化的数据集无法通过结构校验
	ErrMalformed = errors.New("dataset is malformed")
	// ErrInconsistent 表示数据集结构完整，但ID或计数器不自洽
	ErrInconsistent = errors.New("dataset is inconsistent")
	// ErrPersistence 表示读写后端失败，调用方不应重试
	ErrPersistence = errors.New("dataset persistence failed")
)

// Dataset 是整体加载、修改、保存的完整状态单元
type Dataset struct {
	Characters character.Standings `json:"characters"`
	User       quota.UserState     `json:"user_state"`
}

// New 创建一个全新播种的数据集，所有计数器归零，最后游玩日期为 today
func New(opts character.SeedOptions, today quota.Date) *Dataset {
	return &Dataset{
		Characters: character.Seed(opts),
		User:       quota.UserState{LastPlayedDate: today},
	}
}

// Clone 返回一个不与原数据集共享底层数组的副本
func (d *Dataset) Clone() *Dataset {
	return &Dataset{
		Characters: d.Characters.List(),
		User:       d.User,
	}
}

// Validate 检查数据集的结构: 角色列表与最后游玩日期都必须存在，失败时返回包装了 ErrMalformed 的错误。
// 只有结构缺失才会触发重新播种，计数器的取值不在这里检查，见 CheckIntegrity。
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil dataset", ErrMalformed)
	}
	if d.Characters == nil {
		return fmt.Errorf("%w: missing characters", ErrMalformed)
	}
	if d.User.LastPlayedDate.IsZero() {
		return fmt.Errorf("%w: missing last played date", ErrMalformed)
	}
	return nil
}

// CheckIntegrity 检查ID与计数器是否自洽，失败时返回包装了 ErrInconsistent 的错误。
// 它只用于迁移等显式操作，加载时不会因此丢弃数据。
func (d *Dataset) CheckIntegrity() error {
	if d.User.VotesToday < 0 {
		return fmt.Errorf("%w: negative votes today", ErrInconsistent)
	}

	seen := make(map[int]struct{}, len(d.Characters))
	for _, c := range d.Characters {
		if c.ID <= 0 {
			return fmt.Errorf("%w: non-positive character id %d", ErrInconsistent, c.ID)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate character id %d", ErrInconsistent, c.ID)
		}
		seen[c.ID] = struct{}{}

		if c.Wins < 0 || c.Losses < 0 || c.Matches < 0 {
			return fmt.Errorf("%w: negative counters on character %d", ErrInconsistent, c.ID)
		}
		if !c.Consistent() {
			return fmt.Errorf("%w: character %d has matches != wins + losses", ErrInconsistent, c.ID)
		}
	}
	return nil
}
