package lifecycle

import (
	"context"
	"time"
)

// Handle 交给单个后台任务使用。
// 任务在循环间隔里调用 Sleep，停机开始后 Sleep 立即返回错误，任务据此退出循环。
type Handle struct {
	name string
	ctx  context.Context

	// Close 注销任务，一般在任务的 goroutine 里 defer 调用，重复调用无副作用
	Close func()
}

// Name 返回任务登记时使用的名字
func (h *Handle) Name() string {
	return h.name
}

// Ctx 返回任务的 Context，停机开始时被取消。
// 健康检查的 Ping 和快照写入都应该使用它。
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Sleep 等待 d，停机开始时提前返回 Err()
func (h *Handle) Sleep(d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-h.ctx.Done():
		return h.ctx.Err()
	case <-t.C:
		return nil
	}
}
