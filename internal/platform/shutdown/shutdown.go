package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brydisanto/vibeoff/pkg/lifecycle"
	"go.uber.org/zap"
)

const (
	httpTimeout     = 15 * time.Second
	gracefulTimeout = 30 * time.Second
	forcefulTimeout = 1 * time.Second
)

// Closer 是停机最后阶段需要释放的资源，例如数据库和Redis连接
type Closer struct {
	Name  string
	Close func() error
}

// Coordinator 负责编排应用程序的优雅停机流程。
// 它接收外部创建的生命周期管理器，并使用它们来协调停机。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	closers []Closer
	logger  *zap.Logger
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, logger *zap.Logger, closers ...Closer) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		closers:         closers,
		logger:          logger.Named("shutdown"),
	}
}

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// 阻塞直到接收到停机信号
	sig := <-sigChan
	c.logger.Info("收到关闭信号，开始优雅停机", zap.String("signal", sig.String()))
	c.Shutdown(server)
}

// Shutdown 执行完整的停机流程: 关闭HTTP服务器，两阶段停止后台服务，最后释放资源
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("HTTP服务器关闭错误", zap.Error(err))
		} else {
			c.logger.Info("HTTP服务器已关闭")
		}
	}

	// --- 阶段一: 优雅停机 ---
	c.logger.Info("第一阶段停机: 等待后台服务完成", zap.Duration("timeout", gracefulTimeout))
	c.GracefulManager.Shutdown()

	remainingServices := c.GracefulManager.WaitWithTimeout(gracefulTimeout)
	if len(remainingServices) == 0 {
		c.logger.Info("所有服务已在第一阶段优雅关闭")
	} else {
		// --- 阶段二: 强制停机 ---
		c.logger.Warn("第一阶段超时，发送第二停机信号",
			zap.Strings("remaining", remainingServices),
			zap.Duration("timeout", forcefulTimeout))
		c.ForcefulManager.Shutdown()
		c.ForcefulManager.WaitWithTimeout(forcefulTimeout)
	}

	// --- 最终步骤 ---
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("释放资源失败", zap.String("resource", closer.Name), zap.Error(err))
		}
	}

	c.logger.Info("优雅停机完成")
}
