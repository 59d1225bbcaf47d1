package quota

import "errors"

// DefaultDailyLimit 是每日可投票次数的默认上限
const DefaultDailyLimit = 10

// ErrQuotaExceeded 表示今日的投票次数已用完，到下一个自然日会自动恢复
var ErrQuotaExceeded = errors.New("daily vote limit reached")

// State 定义了配额状态机的两个状态
type State int

const (
	// StateWithinLimit 表示今天还可以继续投票
	StateWithinLimit State = iota
	// StateExhausted 表示今天的投票次数已用完
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateWithinLimit:
		return "within_limit"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// UserState 是全局唯一的用户配额状态，随数据集一起持久化
type UserState struct {
	// LastPlayedDate 是最近一次配额活动所在的日期
	LastPlayedDate Date `json:"last_played_date"`

	// VotesToday 只有相对于 LastPlayedDate 才有意义
	VotesToday int `json:"votes_today"`
}

// Tracker 负责每日配额的检查、跨日重置与消耗。
// 它本身不持有状态，也不负责持久化；调用方在发生跨日重置后必须立即保存。
type Tracker struct {
	limit int
}

// NewTracker 创建一个配额追踪器，limit 小于1时使用默认值
func NewTracker(limit int) *Tracker {
	if limit < 1 {
		limit = DefaultDailyLimit
	}
	return &Tracker{limit: limit}
}

// Limit 返回每日上限
func (t *Tracker) Limit() int {
	return t.limit
}

// CheckAndRoll 先应用跨日规则，再判断配额状态。
// 若 LastPlayedDate 不是 today，则把状态重置为 (today, 0) 并返回 rolled=true，
// 调用方需要在返回前持久化这次重置。
func (t *Tracker) CheckAndRoll(state *UserState, today Date) (current State, rolled bool) {
	if !state.LastPlayedDate.Equal(today) {
		state.LastPlayedDate = today
		state.VotesToday = 0
		return StateWithinLimit, true
	}
	if state.VotesToday >= t.limit {
		return StateExhausted, false
	}
	return StateWithinLimit, false
}

// Consume 消耗一次投票机会。
// 调用方必须在此之前刚刚通过 CheckAndRoll 确认了 StateWithinLimit，这里不再重复校验。
func (t *Tracker) Consume(state *UserState) {
	state.VotesToday++
}

// Remaining 返回 today 还剩余的投票次数，不修改 state
func (t *Tracker) Remaining(state UserState, today Date) int {
	if !state.LastPlayedDate.Equal(today) {
		return t.limit
	}
	return max(0, t.limit-state.VotesToday)
}
