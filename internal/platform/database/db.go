package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brydisanto/vibeoff/internal/platform/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQL 根据存储后端打开 sqlite 或 postgres 连接
func OpenSQL(cfg config.StorageConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Backend {
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.Sqlite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("创建数据库目录失败: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Sqlite.Path)
	case config.BackendPostgres:
		dialector = postgres.Open(cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("存储后端 %q 不是SQL数据库", cfg.Backend)
	}

	// 连接到数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	log.Info("数据库连接成功", zap.String("backend", cfg.Backend))
	return db, nil
}

// newGormLogger 把gorm的日志写入zap，调试级别以外保持静默
func newGormLogger(log *zap.Logger) logger.Interface {
	level := logger.Silent
	if log.Core().Enabled(zapcore.DebugLevel) {
		level = logger.Info
	}

	// GORM日志配置
	return logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// CloseSQL 关闭底层的连接池
func CloseSQL(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
