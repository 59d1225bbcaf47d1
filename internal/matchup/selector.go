package matchup

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/brydisanto/vibeoff/internal/character"
)

// ErrInsufficientCandidates 表示角色数量不足两个，无法组成对决
var ErrInsufficientCandidates = errors.New("at least two characters are required for a matchup")

// Selector 从全部角色中等概率、无放回地抽取两个不同的角色。
// 不做任何加权 (场次、胜率、新近程度都不参与)。
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector 使用给定的随机源创建选择器，src 为 nil 时使用随机种子
func NewSelector(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Selector{rng: rand.New(src)}
}

// Select 返回一对不同的角色，两种出场顺序的概率相同
func (s *Selector) Select(characters []character.Character) (character.Character, character.Character, error) {
	n := len(characters)
	if n < 2 {
		return character.Character{}, character.Character{}, ErrInsufficientCandidates
	}

	s.mu.Lock()
	first := s.rng.IntN(n)
	second := s.rng.IntN(n - 1)
	s.mu.Unlock()

	// 在剩余的 n-1 个位置中选择第二个，跳过第一个的位置
	if second >= first {
		second++
	}
	return characters[first], characters[second], nil
}
