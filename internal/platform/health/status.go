package health

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State 定义了系统健康状态的枚举类型
type State int

const (
	StateHealthy State = iota
	StateDegraded
)

func (s State) String() string {
	if s == StateHealthy {
		return "healthy"
	}
	return "degraded"
}

// ProbeResult 是单个探针最近一次的检查结果
type ProbeResult struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Report 是对外暴露的健康快照
type Report struct {
	State  string                 `json:"state"`
	Probes map[string]ProbeResult `json:"probes"`
}

// statusManager 负责线程安全地管理和提供系统的健康状态。
type statusManager struct {
	mu           sync.RWMutex
	currentState State
	results      map[string]ProbeResult
	logger       *zap.Logger
}

func newStatusManager(logger *zap.Logger) *statusManager {
	return &statusManager{
		currentState: StateHealthy,
		results:      make(map[string]ProbeResult),
		logger:       logger,
	}
}

// state 返回当前的系统健康状态。
func (sm *statusManager) state() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// assess 记录一轮检查的结果并决定新的状态，只有状态发生变化时才打印日志
func (sm *statusManager) assess(results map[string]ProbeResult) State {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	next := StateHealthy
	for name, r := range results {
		sm.results[name] = r
		if !r.Healthy {
			next = StateDegraded
		}
	}

	if next != sm.currentState {
		switch next {
		case StateHealthy:
			sm.logger.Info("健康检查: 所有依赖已恢复，系统状态 -> [健康]")
		case StateDegraded:
			sm.logger.Warn("健康检查: 存在不可用的依赖，系统状态 -> [降级]")
		}
		sm.currentState = next
	}
	return next
}

func (sm *statusManager) report() Report {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	probes := make(map[string]ProbeResult, len(sm.results))
	for name, r := range sm.results {
		probes[name] = r
	}
	return Report{State: sm.currentState.String(), Probes: probes}
}
