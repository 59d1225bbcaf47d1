package vote

import (
	"context"
	"errors"
	"time"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/brydisanto/vibeoff/pkg/token"
)

// HistoryLimit 是投票动态最多保留和展示的条数
const HistoryLimit = 50

// ErrHistoryDisabled 表示服务没有配置投票动态
var ErrHistoryDisabled = errors.New("vote history is not enabled")

// VoteRecord 定义了投票动态中的一条记录。
// 它不属于数据集，只用于展示最近的投票。
type VoteRecord struct {
	WinnerID   int       `json:"winnerId"`
	LoserID    int       `json:"loserId"`
	WinnerName string    `json:"winnerName"`
	LoserName  string    `json:"loserName"`
	VotedAt    time.Time `json:"votedAt"`
}

// History 是投票动态的存储契约。
// Recent 按时间倒序返回最多 n 条记录。
type History interface {
	Append(ctx context.Context, record VoteRecord) error
	Recent(ctx context.Context, n int) ([]VoteRecord, error)
}

// Matchup 是一次对决的结果，两个角色的顺序即展示顺序
type Matchup struct {
	A character.Character
	B character.Character

	VotesToday int
	Remaining  int

	// Ticket 只有在启用了对决票据时才非空
	Ticket *token.Ticket
}

// Receipt 是一次成功投票的回执
type Receipt struct {
	VotesToday int
}

// QuotaStatus 描述了今天的配额使用情况
type QuotaStatus struct {
	Date       quota.Date  `json:"date"`
	VotesToday int         `json:"votesToday"`
	DailyLimit int         `json:"dailyLimit"`
	Remaining  int         `json:"remaining"`
	State      quota.State `json:"-"`
}
