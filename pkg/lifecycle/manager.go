package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrServiceRegistered 表示同名的后台任务已经在同一个 Manager 上登记过
var ErrServiceRegistered = errors.New("lifecycle: service already registered")

// Manager 管理 vibeoff 服务器的一组后台任务 (健康检查器、备份调度器)。
// 服务器持有两个 Manager，分别对应停机的优雅阶段和强制阶段，由 shutdown 包依次关停。
type Manager struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	running map[string]time.Time // 任务名 -> 登记时间

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewManager 创建一个 Manager，logger 为空时不输出日志
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		running: make(map[string]time.Time),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Named("lifecycle"),
	}
}

// NewServiceHandle 登记一个后台任务并返回它的 Handle。
// 任务退出前必须调用 Handle.Close，否则停机时会被报告为未退出。
func (m *Manager) NewServiceHandle(name string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.running[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceRegistered, name)
	}
	started := time.Now()
	m.running[name] = started
	m.wg.Add(1)
	m.logger.Debug("后台任务已登记", zap.String("service", name), zap.Int("running", len(m.running)))

	return &Handle{
		name:  name,
		ctx:   m.ctx,
		Close: func() { m.release(name, started) },
	}, nil
}

// release 注销一个任务，同一任务只会生效一次
func (m *Manager) release(name string, started time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.running[name]; !ok {
		return
	}
	delete(m.running, name)
	m.wg.Done()
	m.logger.Debug("后台任务已退出",
		zap.String("service", name),
		zap.Duration("uptime", time.Since(started)),
		zap.Int("running", len(m.running)))
}

// Shutdown 取消所有 Handle 共享的 Context，可以重复调用
func (m *Manager) Shutdown() {
	m.mu.Lock()
	n := len(m.running)
	m.mu.Unlock()

	m.logger.Info("通知后台任务退出", zap.Int("running", n))
	m.cancel()
}

// WaitWithTimeout 阻塞到所有任务调用 Close 或 timeout 到期。
// 超时时按名字排序返回仍在运行的任务。
func (m *Manager) WaitWithTimeout(timeout time.Duration) []string {
	exited := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(exited)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-exited:
		return nil
	case <-timer.C:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.running))
}
