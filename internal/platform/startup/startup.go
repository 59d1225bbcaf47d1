// Package startup 根据配置组装存储后端、投票服务和后台服务。
package startup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/matchup"
	"github.com/brydisanto/vibeoff/internal/platform/backup"
	"github.com/brydisanto/vibeoff/internal/platform/config"
	"github.com/brydisanto/vibeoff/internal/platform/database"
	"github.com/brydisanto/vibeoff/internal/platform/health"
	"github.com/brydisanto/vibeoff/internal/platform/shutdown"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/brydisanto/vibeoff/internal/storage/filestore"
	"github.com/brydisanto/vibeoff/internal/storage/redisstore"
	"github.com/brydisanto/vibeoff/internal/storage/sqlstore"
	"github.com/brydisanto/vibeoff/internal/vote"
	"github.com/brydisanto/vibeoff/pkg/token"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Storage 是打开后的存储后端及其底层连接
type Storage struct {
	Repository dataset.Repository

	// DB 和 Redis 只在对应后端被使用时非空
	DB    *gorm.DB
	Redis *redis.Client
}

// Close 关闭存储持有的所有连接
func (s *Storage) Close() error {
	var errs []error
	if s.DB != nil {
		errs = append(errs, database.CloseSQL(s.DB))
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	return errors.Join(errs...)
}

// OpenStorage 按名称打开一个存储后端。backend 可以与 cfg.Storage.Backend 不同，
// 数据迁移命令就是这样同时打开源和目标的。
func OpenStorage(ctx context.Context, backend string, cfg *config.Config, logger *zap.Logger) (*Storage, error) {
	switch backend {
	case config.BackendFile:
		return &Storage{Repository: filestore.New(cfg.Storage.File.Path)}, nil

	case config.BackendSQLite, config.BackendPostgres:
		sc := cfg.Storage
		sc.Backend = backend
		if backend == config.BackendPostgres && sc.Postgres.DSN == "" {
			return nil, errors.New("storage.postgres.dsn 不能为空")
		}
		db, err := database.OpenSQL(sc, logger)
		if err != nil {
			return nil, err
		}
		repo, err := sqlstore.New(db)
		if err != nil {
			_ = database.CloseSQL(db)
			return nil, err
		}
		return &Storage{Repository: repo, DB: db}, nil

	case config.BackendRedis:
		if !cfg.RedisConfigured() {
			return nil, errors.New("storage.redis.address 不能为空")
		}
		rdb, err := database.NewRedis(ctx, cfg.Storage.Redis, logger)
		if err != nil {
			return nil, err
		}
		return &Storage{Repository: redisstore.New(rdb, cfg.Storage.Redis.Key), Redis: rdb}, nil
	}
	return nil, fmt.Errorf("未知的存储后端 %q", backend)
}

// App 汇总了服务器运行所需的全部组件
type App struct {
	Service *vote.Service
	Handler *vote.Handler

	// RateLimiter 在未启用限流时为 nil
	RateLimiter *vote.RateLimiter
	Health      *health.Checker
	// Backup 在未启用备份时为 nil
	Backup *backup.Scheduler

	// Closers 按顺序在停机的最后阶段执行
	Closers []shutdown.Closer
}

// InitializeApplication 是应用启动时执行的总入口。
// 它打开存储，组装服务，并预先读取一次数据集，让持久化问题在启动时就暴露出来。
func InitializeApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (app *App, err error) {
	logger.Info("开始应用初始化...", zap.String("backend", cfg.Storage.Backend))

	// 1. 存储后端
	storage, err := OpenStorage(ctx, cfg.Storage.Backend, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("打开存储后端失败: %w", err)
	}
	closers := []shutdown.Closer{{Name: "storage", Close: storage.Close}}
	defer func() {
		if err != nil {
			closeAll(closers, logger)
		}
	}()

	// 2. 限流器和Redis投票动态可能需要一个独立的Redis连接
	rdb := storage.Redis
	if rdb == nil && needsRedis(cfg) {
		rdb, err = database.NewRedis(ctx, cfg.Storage.Redis, logger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, shutdown.Closer{Name: "redis", Close: rdb.Close})
	}

	// 3. 投票动态
	var history vote.History
	if cfg.History.Enabled {
		switch {
		case storage.DB != nil:
			sqlHistory, err := sqlstore.NewHistory(storage.DB)
			if err != nil {
				return nil, err
			}
			history = sqlHistory
		case rdb != nil:
			history = redisstore.NewHistory(rdb, redisstore.DefaultHistoryKey)
		}
	}

	// 4. 对决票据
	signer, err := newSigner(cfg.Game, logger)
	if err != nil {
		return nil, err
	}

	replay, err := newReplayGuard(ctx, signer, storage, rdb, logger)
	if err != nil {
		return nil, err
	}

	// 5. 投票服务
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	service := vote.NewService(vote.Options{
		Repository: storage.Repository,
		Tracker:    quota.NewTracker(cfg.Game.DailyLimit),
		Selector:   matchup.NewSelector(nil),
		Clock:      quota.Clock{Location: loc},
		Seed: character.SeedOptions{
			Total:       cfg.Game.TotalCharacters,
			NameFormat:  cfg.Game.Seed.NameFormat,
			URLFormat:   cfg.Game.Seed.URLFormat,
			ImageFormat: cfg.Game.Seed.ImageFormat,
		},
		History: history,
		Signer:  signer,
		Replay:  replay,
		Logger:  logger,
	})

	// 预读一次数据集，不存在时在这里完成播种
	status, err := service.QuotaStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取数据集失败: %w", err)
	}
	logger.Info("数据集已就绪",
		zap.Stringer("date", status.Date),
		zap.Int("votesToday", status.VotesToday),
		zap.Int("dailyLimit", status.DailyLimit))

	app = &App{
		Service: service,
		Handler: vote.NewHandler(service, cfg.Game.LeaderboardLimit, logger),
	}

	// 6. 限流
	if cfg.RateLimit.Enabled {
		app.RateLimiter = vote.NewRateLimiter(rdb, cfg.RateLimit.Window, cfg.RateLimit.Max, logger)
	}

	// 7. 健康检查探针
	probes := []health.Probe{
		health.FuncProbe("dataset", func(ctx context.Context) error {
			_, err := service.Snapshot(ctx)
			return err
		}),
	}
	if storage.DB != nil {
		probes = append(probes, health.SQLProbe(storage.DB))
	}
	if rdb != nil {
		probes = append(probes, health.RedisProbe(rdb, logger))
	}
	app.Health = health.NewChecker(health.DefaultInterval, logger, probes...)

	// 8. 定时备份，停机时先做最后一次备份再关闭连接
	if cfg.Backup.Enabled {
		app.Backup = backup.NewScheduler(service, filestore.New(cfg.Backup.Path), cfg.Backup.Interval, logger)
		final := shutdown.Closer{Name: "backup", Close: func() error {
			_, err := app.Backup.CreateSnapshot(context.Background())
			return err
		}}
		closers = append([]shutdown.Closer{final}, closers...)
	}

	app.Closers = closers
	logger.Info("应用初始化完成！")
	return app, nil
}

func needsRedis(cfg *config.Config) bool {
	if !cfg.RedisConfigured() {
		return false
	}
	return cfg.RateLimit.Enabled || (cfg.History.Enabled && cfg.Storage.Backend == config.BackendFile)
}

func newSigner(game config.GameConfig, logger *zap.Logger) (*token.Signer, error) {
	if !game.RequireTicket {
		return nil, nil
	}
	if game.TicketSecret != "" {
		return token.NewSigner([]byte(game.TicketSecret))
	}
	logger.Warn("未配置 game.ticketSecret，使用随机密钥，重启后旧票据将失效")
	return token.NewRandomSigner()
}

// newReplayGuard 为对决票据选择防重放记录: 优先使用数据库，其次Redis，否则保存在内存中
func newReplayGuard(ctx context.Context, signer *token.Signer, storage *Storage, rdb *redis.Client, logger *zap.Logger) (vote.ReplayGuard, error) {
	if signer == nil {
		return nil, nil
	}
	switch {
	case storage.DB != nil:
		guard, err := sqlstore.NewReplayGuard(storage.DB, vote.TicketRetention)
		if err != nil {
			return nil, err
		}
		// 启动时清理过期的票据记录
		pruned, err := guard.Prune(ctx, time.Now())
		if err != nil {
			return nil, fmt.Errorf("清理过期票据失败: %w", err)
		}
		logger.Debug("已清理过期票据", zap.Int64("count", pruned))
		return guard, nil
	case rdb != nil:
		return redisstore.NewReplayGuard(rdb, vote.TicketRetention), nil
	default:
		return vote.NewMemoryReplayGuard(vote.TicketRetention), nil
	}
}

func closeAll(closers []shutdown.Closer, logger *zap.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("释放资源失败", zap.String("resource", c.Name), zap.Error(err))
		}
	}
}
