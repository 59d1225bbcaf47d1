package api

import (
	"github.com/brydisanto/vibeoff/internal/platform/health"
	"github.com/brydisanto/vibeoff/internal/vote"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由。
// limiter 和 checker 可以为 nil，此时不启用限流或不注册 /healthz。
func SetupRoutes(router *gin.Engine, handler *vote.Handler, limiter *vote.RateLimiter, checker *health.Checker) {
	api := router.Group("/api")
	{
		// 对决与投票
		api.GET("/matchup", handler.GetMatchup)

		voteChain := make([]gin.HandlerFunc, 0, 2)
		if limiter != nil {
			voteChain = append(voteChain, limiter.Middleware())
		}
		voteChain = append(voteChain, handler.SubmitVote)
		api.POST("/vote", voteChain...)

		// 排行榜、配额与投票动态
		api.GET("/leaderboard", handler.GetLeaderboard)
		api.GET("/quota", handler.GetQuota)
		api.GET("/history", handler.GetHistory)
	}

	if checker != nil {
		router.GET("/healthz", checker.Handler())
	}
}
