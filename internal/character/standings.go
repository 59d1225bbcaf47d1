package character

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownCharacter 表示调用方提供的ID在当前数据集中不存在
	ErrUnknownCharacter = errors.New("unknown character")
	// ErrSelfMatch 表示胜者与败者是同一个角色
	ErrSelfMatch = errors.New("winner and loser must be different characters")
)

// Standings 是按播种顺序排列的角色列表，负责战绩的变更与排名视图
type Standings []Character

// List 按播种顺序返回角色列表的副本
func (s Standings) List() []Character {
	out := make([]Character, len(s))
	copy(out, s)
	return out
}

// Find 根据ID查找角色
func (s Standings) Find(id int) (Character, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s[i], true
	}
	return Character{}, false
}

func (s Standings) indexOf(id int) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// ApplyOutcome 记录一场对决的结果。
// 两个ID都会在任何修改之前完成校验，校验失败时所有计数器保持不变。
func (s Standings) ApplyOutcome(winnerID, loserID int) error {
	if winnerID == loserID {
		return fmt.Errorf("%w: %d", ErrSelfMatch, winnerID)
	}

	// 1. 先校验，再修改
	winner := s.indexOf(winnerID)
	if winner < 0 {
		return fmt.Errorf("%w: winner %d", ErrUnknownCharacter, winnerID)
	}
	loser := s.indexOf(loserID)
	if loser < 0 {
		return fmt.Errorf("%w: loser %d", ErrUnknownCharacter, loserID)
	}

	// 2. 更新胜负与场次
	s[winner].Wins++
	s[winner].Matches++
	s[loser].Losses++
	s[loser].Matches++
	return nil
}

// Ranked 是排行榜中的一项
type Ranked struct {
	Rank int
	Character
}

// Leaderboard 返回前 limit 名角色。
// 排序规则: 胜率降序，其次胜场降序，再相同则保持播种顺序。limit <= 0 时返回全部。
func (s Standings) Leaderboard(limit int) []Ranked {
	sorted := s.List()
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].WinRate(), sorted[j].WinRate()
		if ri != rj {
			return ri > rj
		}
		return sorted[i].Wins > sorted[j].Wins
	})

	if limit <= 0 || limit > len(sorted) {
		limit = len(sorted)
	}
	board := make([]Ranked, 0, limit)
	for i, c := range sorted[:limit] {
		board = append(board, Ranked{Rank: i + 1, Character: c})
	}
	return board
}
