package vote

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/brydisanto/vibeoff/pkg/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultLeaderboardLimit 是排行榜接口默认返回的条数
const DefaultLeaderboardLimit = 20

// --- API请求与响应模型 ---

// VoteRequestBody 定义了前端提交投票时，请求体的JSON结构
type VoteRequestBody struct {
	WinnerID int `json:"winnerId" binding:"required,gt=0"`
	LoserID  int `json:"loserId" binding:"required,gt=0"`

	// 只有启用了对决票据时才需要
	PairID    string `json:"pairId"`
	Signature string `json:"signature"`
}

// CharacterResponse 是对决中单个角色的展示模型
type CharacterResponse struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Image   string `json:"image"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
	Matches int    `json:"matches"`
}

// RankedCharacterResponse 是排行榜中的一项，WinRate 为百分比
type RankedCharacterResponse struct {
	Rank int `json:"rank"`
	CharacterResponse
	WinRate float64 `json:"winRate"`
}

// MatchupResponse 是 GET /api/matchup 的响应
type MatchupResponse struct {
	Characters     []CharacterResponse `json:"characters"`
	VotesToday     int                 `json:"votesToday"`
	VotesRemaining int                 `json:"votesRemaining"`
	PairID         string              `json:"pairId,omitempty"`
	Signature      string              `json:"signature,omitempty"`
}

// QuotaResponse 是 GET /api/quota 的响应
type QuotaResponse struct {
	QuotaStatus
	State string `json:"state"`
}

func formatCharacter(c character.Character) CharacterResponse {
	return CharacterResponse{
		ID:      c.ID,
		Name:    c.Name,
		URL:     c.ExternalURL,
		Image:   c.ImageURL,
		Wins:    c.Wins,
		Losses:  c.Losses,
		Matches: c.Matches,
	}
}

func formatRanked(r character.Ranked) RankedCharacterResponse {
	return RankedCharacterResponse{
		Rank:              r.Rank,
		CharacterResponse: formatCharacter(r.Character),
		WinRate:           math.Round(r.WinRate()*10000) / 100,
	}
}

// --- 控制器 ---

// Handler 把 Service 暴露为HTTP接口
type Handler struct {
	service          *Service
	leaderboardLimit int
	logger           *zap.Logger
}

// NewHandler 创建HTTP处理器，leaderboardLimit 小于1时使用 DefaultLeaderboardLimit
func NewHandler(service *Service, leaderboardLimit int, logger *zap.Logger) *Handler {
	if leaderboardLimit < 1 {
		leaderboardLimit = DefaultLeaderboardLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, leaderboardLimit: leaderboardLimit, logger: logger.Named("http")}
}

// writeError 把服务层的错误映射为HTTP状态码
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "Daily limit reached"})
	case errors.Is(err, character.ErrUnknownCharacter), errors.Is(err, character.ErrSelfMatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid character IDs"})
	case errors.Is(err, token.ErrInvalidTicket):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid matchup ticket"})
	case errors.Is(err, ErrTicketReused):
		c.JSON(http.StatusConflict, gin.H{"error": "Matchup ticket already used"})
	default:
		h.logger.Error("处理请求失败", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// GetMatchup 获取一对用于对决的角色
func (h *Handler) GetMatchup(c *gin.Context) {
	m, err := h.service.Matchup(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := MatchupResponse{
		Characters:     []CharacterResponse{formatCharacter(m.A), formatCharacter(m.B)},
		VotesToday:     m.VotesToday,
		VotesRemaining: m.Remaining,
	}
	if m.Ticket != nil {
		resp.PairID = m.Ticket.PairID
		resp.Signature = m.Ticket.Signature
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitVote 处理前端提交的投票结果
func (h *Handler) SubmitVote(c *gin.Context) {
	var body VoteRequestBody

	// 1. 绑定并验证请求体
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	// 2. 记录投票
	ticket := token.Ticket{PairID: body.PairID, Signature: body.Signature}
	receipt, err := h.service.SubmitWithTicket(c.Request.Context(), body.WinnerID, body.LoserID, ticket)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// 3. 成功返回
	c.JSON(http.StatusOK, gin.H{"status": "success", "votes_today": receipt.VotesToday})
}

// GetLeaderboard 获取排行榜
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, ok := h.parseLimit(c, h.leaderboardLimit)
	if !ok {
		return
	}

	board, err := h.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	responses := make([]RankedCharacterResponse, 0, len(board))
	for _, r := range board {
		responses = append(responses, formatRanked(r))
	}
	c.JSON(http.StatusOK, gin.H{"characters": responses})
}

// GetQuota 获取今天的配额使用情况
func (h *Handler) GetQuota(c *gin.Context) {
	status, err := h.service.QuotaStatus(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, QuotaResponse{QuotaStatus: status, State: status.State.String()})
}

// GetHistory 获取最近的投票动态
func (h *Handler) GetHistory(c *gin.Context) {
	if !h.service.HistoryEnabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vote history is not enabled"})
		return
	}

	limit, ok := h.parseLimit(c, HistoryLimit)
	if !ok {
		return
	}

	records, err := h.service.Recent(c.Request.Context(), min(limit, HistoryLimit))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": records})
}

// parseLimit 解析可选的 limit 查询参数，非法时直接写入400响应
func (h *Handler) parseLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return limit, true
}
