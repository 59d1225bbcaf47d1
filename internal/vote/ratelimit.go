package vote

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	// rateLimitKeyPrefix 是Redis中每个IP计数器的键名前缀
	rateLimitKeyPrefix = "ratelimit:vote:"

	// DefaultRateLimitWindow 和 DefaultRateLimitMax 是默认的固定窗口参数: 每60秒最多30票
	DefaultRateLimitWindow = 60 * time.Second
	DefaultRateLimitMax    = 30
)

// RateDecision 是一次限流检查的结果
type RateDecision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     time.Time
}

// RateLimiter 按客户端IP实现固定窗口限流。
// 窗口内第一次请求时设置过期时间，之后只做 INCR。
type RateLimiter struct {
	rdb    *redis.Client
	window time.Duration
	max    int64
	now    func() time.Time
	logger *zap.Logger
}

// NewRateLimiter 创建一个基于Redis的限流器，window 或 limit 非法时使用默认值
func NewRateLimiter(rdb *redis.Client, window time.Duration, limit int64, logger *zap.Logger) *RateLimiter {
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	if limit <= 0 {
		limit = DefaultRateLimitMax
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		rdb:    rdb,
		window: window,
		max:    limit,
		now:    time.Now,
		logger: logger.Named("ratelimit"),
	}
}

// Allow 为 ip 记录一次请求并判断是否超限
func (l *RateLimiter) Allow(ctx context.Context, ip string) (RateDecision, error) {
	key := rateLimitKeyPrefix + ip

	// 1. 计数
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return RateDecision{}, fmt.Errorf("increment rate counter: %w", err)
	}

	// 2. 窗口内第一次请求时设置过期时间
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return RateDecision{}, fmt.Errorf("set rate window: %w", err)
		}
	}

	// 3. 读取剩余时间用于 X-RateLimit-Reset
	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil {
		return RateDecision{}, fmt.Errorf("read rate window: %w", err)
	}
	if ttl < 0 {
		// 键没有过期时间 (例如上一次 EXPIRE 失败)，补设一次，避免计数器永久存在
		ttl = l.window
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("补设限流窗口失败", zap.String("key", key), zap.Error(err))
		}
	}

	return RateDecision{
		Allowed:   count <= l.max,
		Limit:     l.max,
		Remaining: max(0, l.max-count),
		Reset:     l.now().Add(ttl),
	}, nil
}

// Middleware 返回一个gin中间件。Redis出错时放行请求 (fail open)。
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		decision, err := l.Allow(c.Request.Context(), ip)
		if err != nil {
			l.logger.Warn("限流检查失败，放行请求", zap.String("ip", ip), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many votes, please slow down"})
			return
		}
		c.Next()
	}
}
