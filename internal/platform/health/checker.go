package health

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/brydisanto/vibeoff/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultInterval 是后台健康检查的间隔
	DefaultInterval = 5 * time.Second
	probeTimeout    = 2 * time.Second
)

// Probe 是一个具名的依赖检查
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Checker 定期执行所有探针，并通过HTTP暴露结果
type Checker struct {
	probes   []Probe
	interval time.Duration
	status   *statusManager
	logger   *zap.Logger
	now      func() time.Time
}

// NewChecker 创建一个健康检查器，interval 小于等于0时使用 DefaultInterval
func NewChecker(interval time.Duration, logger *zap.Logger, probes ...Probe) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("health")
	return &Checker{
		probes:   probes,
		interval: interval,
		status:   newStatusManager(logger),
		logger:   logger,
		now:      time.Now,
	}
}

// PerformCheck 并发执行一次所有探针，并返回检查后的状态
func (c *Checker) PerformCheck(ctx context.Context) State {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]ProbeResult, len(c.probes))
	)

	for _, p := range c.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			result := ProbeResult{Healthy: true, CheckedAt: c.now()}
			if err := p.Check(probeCtx); err != nil {
				result.Healthy = false
				result.Error = err.Error()
				c.logger.Debug("探针检查失败", zap.String("probe", p.Name), zap.Error(err))
			}

			mu.Lock()
			results[p.Name] = result
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	return c.status.assess(results)
}

// State 返回最近一次检查后的状态
func (c *Checker) State() State {
	return c.status.state()
}

// Report 返回最近一次检查的详细结果
func (c *Checker) Report() Report {
	return c.status.report()
}

// Run 在后台循环执行健康检查，直到生命周期句柄发出停机信号。
func (c *Checker) Run(handle *lifecycle.Handle) {
	defer handle.Close() // 确保在退出时通知管理器
	c.logger.Info("健康检查器已启动", zap.String("service", handle.Name()), zap.Duration("interval", c.interval))

	for {
		// 使用可中断的休眠，收到停机信号时立刻退出
		if err := handle.Sleep(c.interval); err != nil {
			c.logger.Info("健康检查器正在关闭")
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}

// Handler 返回 GET /healthz 的处理器: 健康时200，降级时503
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		report := c.Report()
		code := http.StatusOK
		if c.State() != StateHealthy {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, report)
	}
}

// --- 内置探针 ---

// SQLProbe 检查数据库连接
func SQLProbe(db *gorm.DB) Probe {
	return Probe{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// RedisProbe 检查Redis连接，并在检测到Redis重启 (run_id 变化) 时记录警告。
// 未开启持久化的Redis重启后会丢失数据集，下一次读取会重新播种。
func RedisProbe(rdb *redis.Client, logger *zap.Logger) Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		mu        sync.Mutex
		lastRunID string
	)
	return Probe{
		Name: "redis",
		Check: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}

			// 某些兼容实现不提供 INFO server 或 run_id，只要能连通就视为健康
			info, err := rdb.Info(ctx, "server").Result()
			if err != nil {
				return nil
			}
			matches := runIDPattern.FindStringSubmatch(info)
			if len(matches) < 2 {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if lastRunID != "" && lastRunID != matches[1] {
				logger.Warn("健康检查: 检测到Redis重启",
					zap.String("previous", lastRunID),
					zap.String("current", matches[1]))
			}
			lastRunID = matches[1]
			return nil
		},
	}
}

// FuncProbe 把任意函数包装为探针
func FuncProbe(name string, check func(ctx context.Context) error) Probe {
	return Probe{Name: name, Check: check}
}
