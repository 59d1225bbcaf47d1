package database

import (
	"context"
	"fmt"
	"time"

	"github.com/brydisanto/vibeoff/internal/platform/config"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewRedis 初始化与Redis数据库的连接，并使用Ping命令来测试连接是否成功
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	log.Info("Redis 连接成功", zap.String("address", cfg.Address))
	return rdb, nil
}
