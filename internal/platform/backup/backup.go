package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/pkg/lifecycle"
	"go.uber.org/zap"
)

// DefaultInterval 是定时备份的默认频率
const DefaultInterval = 10 * time.Minute

// Source 提供一致的数据集快照，vote.Service 实现了该接口
type Source interface {
	Snapshot(ctx context.Context) (*dataset.Dataset, error)
}

// Scheduler 定期把数据集快照写入另一个仓库。
// 自上次备份以来数据没有变化时跳过写入。
type Scheduler struct {
	mu sync.Mutex // 避免定时备份与停机前的最终备份竞争

	source   Source
	target   dataset.Repository
	interval time.Duration
	logger   *zap.Logger

	last    fingerprint
	hasLast bool
}

// fingerprint 概括了数据集的进度。每一次有效投票都会使总场次加一，
// 跨日重置会改变日期，因此二者不变就说明无需备份。
type fingerprint struct {
	totalMatches int
	date         string
	votesToday   int
}

func fingerprintOf(ds *dataset.Dataset) fingerprint {
	fp := fingerprint{
		date:       ds.User.LastPlayedDate.String(),
		votesToday: ds.User.VotesToday,
	}
	for _, c := range ds.Characters {
		fp.totalMatches += c.Matches
	}
	return fp
}

// NewScheduler 创建备份调度器，interval 小于等于0时使用 DefaultInterval
func NewScheduler(source Source, target dataset.Repository, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		source:   source,
		target:   target,
		interval: interval,
		logger:   logger.Named("backup"),
	}
}

// Run 在后台定期执行备份，直到生命周期句柄发出停机信号。
func (s *Scheduler) Run(handle *lifecycle.Handle) {
	defer handle.Close() // 确保在退出时通知管理器
	s.logger.Info("数据备份调度器已启动", zap.String("service", handle.Name()), zap.Duration("interval", s.interval))

	for {
		// 使用可中断的休眠来代替ticker，收到停机信号时立刻退出
		if err := handle.Sleep(s.interval); err != nil {
			s.logger.Info("备份调度器正在关闭")
			return
		}

		written, err := s.CreateSnapshot(handle.Ctx())
		switch {
		case err != nil:
			// 如果错误是由于停机信号导致的，则静默退出
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				s.logger.Error("执行快照备份失败", zap.Error(err))
			}
		case written:
			s.logger.Info("快照备份成功")
		default:
			s.logger.Debug("数据未变化，跳过本次备份")
		}
	}
}

// CreateSnapshot 执行一次备份，返回是否实际写入了目标仓库
func (s *Scheduler) CreateSnapshot(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. 从服务获取一致的快照
	ds, err := s.source.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("获取数据快照失败: %w", err)
	}

	// 2. 无需备份
	fp := fingerprintOf(ds)
	if s.hasLast && fp == s.last {
		return false, nil
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	// 3. 写入备份仓库
	if err := dataset.Save(ctx, s.target, ds); err != nil {
		return false, fmt.Errorf("写入备份失败: %w", err)
	}
	s.last = fp
	s.hasLast = true
	return true, nil
}
