package vote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/matchup"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/brydisanto/vibeoff/pkg/token"
	"go.uber.org/zap"
)

// Options 汇总了构造 Service 所需的依赖
type Options struct {
	Repository dataset.Repository
	Tracker    *quota.Tracker
	Selector   *matchup.Selector
	Clock      quota.Clock
	Seed       character.SeedOptions

	// History 为空时不记录投票动态
	History History
	// Signer 为空时不签发也不校验对决票据
	Signer *token.Signer
	// Replay 为空时不检查票据是否被重复使用
	Replay ReplayGuard

	Logger *zap.Logger
}

// Service 对外提供对决、投票、排行榜与配额查询。
// 所有操作都在同一把互斥锁下执行 "读取-修改-保存"，保证单写者语义。
type Service struct {
	mu sync.Mutex

	repo      dataset.Repository
	tracker   *quota.Tracker
	selector  *matchup.Selector
	processor *Processor
	clock     quota.Clock
	seed      character.SeedOptions
	history   History
	signer    *token.Signer
	replay    ReplayGuard
	logger    *zap.Logger
}

// NewService 创建投票服务，未提供的可选依赖使用默认值
func NewService(opts Options) *Service {
	if opts.Tracker == nil {
		opts.Tracker = quota.NewTracker(quota.DefaultDailyLimit)
	}
	if opts.Selector == nil {
		opts.Selector = matchup.NewSelector(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Seed.Total == 0 {
		opts.Seed.Total = character.DefaultTotal
	}

	return &Service{
		repo:      opts.Repository,
		tracker:   opts.Tracker,
		selector:  opts.Selector,
		processor: NewProcessor(opts.Tracker),
		clock:     opts.Clock,
		seed:      opts.Seed,
		history:   opts.History,
		signer:    opts.Signer,
		replay:    opts.Replay,
		logger:    opts.Logger.Named("vote"),
	}
}

// DailyLimit 返回每日投票上限
func (s *Service) DailyLimit() int {
	return s.tracker.Limit()
}

// TicketsRequired 报告投票是否需要回传对决票据
func (s *Service) TicketsRequired() bool {
	return s.signer != nil
}

// HistoryEnabled 报告是否配置了投票动态
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// load 读取数据集，必要时重新播种。调用方必须持有 s.mu。
func (s *Service) load(ctx context.Context) (*dataset.Dataset, error) {
	result, err := dataset.LoadOrSeed(ctx, s.repo, s.seed, s.clock.Today())
	if err != nil {
		return nil, err
	}
	if result.Outcome == dataset.Reseeded {
		s.logger.Warn("数据集不存在或已损坏，已重新播种",
			zap.Error(result.Cause),
			zap.Int("characters", len(result.Dataset.Characters)))
	}
	return result.Dataset, nil
}

// Matchup 在配额检查通过后随机返回两个不同的角色。
// 配额用尽时返回 quota.ErrQuotaExceeded，而不是空结果。
func (s *Service) Matchup(ctx context.Context) (Matchup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.load(ctx)
	if err != nil {
		return Matchup{}, err
	}

	// 1. 配额闸门，跨日重置需要立即持久化
	today := s.clock.Today()
	state, rolled := s.tracker.CheckAndRoll(&ds.User, today)
	if rolled {
		if err := dataset.Save(ctx, s.repo, ds); err != nil {
			return Matchup{}, err
		}
		s.logger.Info("已进入新的一天，配额已重置", zap.Stringer("date", today))
	}
	if state == quota.StateExhausted {
		return Matchup{}, quota.ErrQuotaExceeded
	}

	// 2. 随机抽取
	a, b, err := s.selector.Select(ds.Characters)
	if err != nil {
		return Matchup{}, fmt.Errorf("select matchup: %w", err)
	}

	m := Matchup{
		A:          a,
		B:          b,
		VotesToday: ds.User.VotesToday,
		Remaining:  s.tracker.Remaining(ds.User, today),
	}

	// 3. 可选的对决票据
	if s.signer != nil {
		ticket, err := s.signer.Issue(a.ID, b.ID)
		if err != nil {
			return Matchup{}, fmt.Errorf("issue matchup ticket: %w", err)
		}
		m.Ticket = &ticket
	}
	return m, nil
}

// Submit 记录一次投票并返回今天已投的票数
func (s *Service) Submit(ctx context.Context, winnerID, loserID int) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.load(ctx)
	if err != nil {
		return Receipt{}, err
	}

	// ApplyOutcome 失败时战绩保持不变，此时 ds 上只有跨日重置需要持久化
	rolled, applyErr := s.processor.Apply(ds, winnerID, loserID, s.clock.Today())
	if applyErr != nil {
		if rolled {
			if err := dataset.Save(ctx, s.repo, ds); err != nil {
				return Receipt{}, err
			}
		}
		return Receipt{}, applyErr
	}

	// 整体保存
	if err := dataset.Save(ctx, s.repo, ds); err != nil {
		return Receipt{}, err
	}

	s.logger.Debug("投票已记录",
		zap.Int("winner", winnerID),
		zap.Int("loser", loserID),
		zap.Int("votesToday", ds.User.VotesToday))

	s.appendHistory(ctx, ds, winnerID, loserID)
	return Receipt{VotesToday: ds.User.VotesToday}, nil
}

// SubmitWithTicket 在启用了对决票据时先校验票据，再记录投票。
// 票据在校验通过后立即被标记为已使用，即使随后的投票被拒绝也不能再次使用。
// 未启用票据时 ticket 被忽略。
func (s *Service) SubmitWithTicket(ctx context.Context, winnerID, loserID int, ticket token.Ticket) (Receipt, error) {
	if s.signer != nil {
		if err := s.signer.Verify(ticket, winnerID, loserID); err != nil {
			return Receipt{}, err
		}
		if s.replay != nil {
			first, err := s.replay.Claim(ctx, ticket.PairID)
			if err != nil {
				return Receipt{}, fmt.Errorf("claim matchup ticket: %w", err)
			}
			if !first {
				return Receipt{}, ErrTicketReused
			}
		}
	}
	return s.Submit(ctx, winnerID, loserID)
}

// appendHistory 尽力写入投票动态，投票本身已经持久化，这里的失败只记录日志
func (s *Service) appendHistory(ctx context.Context, ds *dataset.Dataset, winnerID, loserID int) {
	if s.history == nil {
		return
	}
	winner, _ := ds.Characters.Find(winnerID)
	loser, _ := ds.Characters.Find(loserID)
	record := VoteRecord{
		WinnerID:   winnerID,
		LoserID:    loserID,
		WinnerName: winner.Name,
		LoserName:  loser.Name,
		VotedAt:    s.now(),
	}
	if err := s.history.Append(ctx, record); err != nil {
		s.logger.Warn("写入投票动态失败", zap.Error(err))
	}
}

// Leaderboard 返回前 limit 名角色
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]character.Ranked, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Characters.Leaderboard(limit), nil
}

// Snapshot 在锁内读取数据集并返回一份独立的副本，供备份等只读用途使用
func (s *Service) Snapshot(ctx context.Context) (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Clone(), nil
}

// QuotaStatus 返回今天的配额使用情况，发生跨日时会持久化重置
func (s *Service) QuotaStatus(ctx context.Context) (QuotaStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.load(ctx)
	if err != nil {
		return QuotaStatus{}, err
	}

	today := s.clock.Today()
	state, rolled := s.tracker.CheckAndRoll(&ds.User, today)
	if rolled {
		if err := dataset.Save(ctx, s.repo, ds); err != nil {
			return QuotaStatus{}, err
		}
	}

	return QuotaStatus{
		Date:       today,
		VotesToday: ds.User.VotesToday,
		DailyLimit: s.tracker.Limit(),
		Remaining:  s.tracker.Remaining(ds.User, today),
		State:      state,
	}, nil
}

// Recent 返回最近的 n 条投票动态，n 会被限制在 [1, HistoryLimit]
func (s *Service) Recent(ctx context.Context, n int) ([]VoteRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	if n <= 0 || n > HistoryLimit {
		n = HistoryLimit
	}
	records, err := s.history.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("read vote history: %w", err)
	}
	return records, nil
}

func (s *Service) now() time.Time {
	if s.clock.Now != nil {
		return s.clock.Now()
	}
	return time.Now()
}

// IsRejection 报告 err 是否属于调用方可以预期的拒绝 (配额、非法ID、票据)，而不是内部故障
func IsRejection(err error) bool {
	return errors.Is(err, quota.ErrQuotaExceeded) ||
		errors.Is(err, character.ErrUnknownCharacter) ||
		errors.Is(err, character.ErrSelfMatch) ||
		errors.Is(err, token.ErrInvalidTicket) ||
		errors.Is(err, ErrTicketReused)
}
