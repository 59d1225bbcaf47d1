package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/platform/config"
	"github.com/brydisanto/vibeoff/internal/platform/logging"
	"github.com/brydisanto/vibeoff/internal/platform/startup"
	"github.com/brydisanto/vibeoff/pkg/token"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// defaultLeaderboardLimit 是命令行排行榜默认显示的数量
const defaultLeaderboardLimit = 10

// ErrSameBackend 表示迁移的源和目标是同一个后端
var ErrSameBackend = errors.New("--from and --to must be different backends")

type cliDependencies struct {
	out io.Writer
}

func (d *cliDependencies) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

type appAction func(ctx context.Context, c *cli.Command, deps *cliDependencies, app *startup.App) error

// setup 加载配置并创建日志记录器。未指定 --verbose 时只输出警告及以上级别。
func setup(c *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	level := "warn"
	if c.Bool("verbose") {
		level = cfg.Log.Level
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withApp 为命令初始化应用，并在命令结束后释放资源
func withApp(deps *cliDependencies, action appAction) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cfg, logger, err := setup(c)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		app, err := startup.InitializeApplication(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			for _, closer := range app.Closers {
				if err := closer.Close(); err != nil {
					logger.Warn("释放资源失败", zap.String("resource", closer.Name), zap.Error(err))
				}
			}
		}()

		return action(ctx, c, deps, app)
	}
}

// handleMatchup handles the 'matchup' command.
func handleMatchup(ctx context.Context, _ *cli.Command, deps *cliDependencies, app *startup.App) error {
	m, err := app.Service.Matchup(ctx)
	if err != nil {
		return err
	}

	deps.printf("Votes today: %d/%d (%d remaining)\n", m.VotesToday, app.Service.DailyLimit(), m.Remaining)
	for _, ch := range []character.Character{m.A, m.B} {
		deps.printf("  [%d] %s (%d wins in %d matches)\n", ch.ID, ch.Name, ch.Wins, ch.Matches)
	}
	if m.Ticket != nil {
		deps.printf("pair-id: %s\nsignature: %s\n", m.Ticket.PairID, m.Ticket.Signature)
	}
	return nil
}

// handleVote handles the 'vote' command.
func handleVote(ctx context.Context, c *cli.Command, deps *cliDependencies, app *startup.App) error {
	winner := int(c.Int("winner"))
	loser := int(c.Int("loser"))
	ticket := token.Ticket{PairID: c.String("pair-id"), Signature: c.String("signature")}

	receipt, err := app.Service.SubmitWithTicket(ctx, winner, loser, ticket)
	if err != nil {
		return err
	}
	deps.printf("Vote recorded. Votes today: %d/%d\n", receipt.VotesToday, app.Service.DailyLimit())
	return nil
}

// handleLeaderboard handles the 'leaderboard' command.
func handleLeaderboard(ctx context.Context, c *cli.Command, deps *cliDependencies, app *startup.App) error {
	limit := int(c.Int("limit"))
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	board, err := app.Service.Leaderboard(ctx, limit)
	if err != nil {
		return err
	}
	for _, r := range board {
		deps.printf("%2d. %-24s %6.2f%%  %d-%d\n",
			r.Rank, r.Name, math.Round(r.WinRate()*10000)/100, r.Wins, r.Losses)
	}
	return nil
}

// handleStatus handles the 'status' command.
func handleStatus(ctx context.Context, _ *cli.Command, deps *cliDependencies, app *startup.App) error {
	status, err := app.Service.QuotaStatus(ctx)
	if err != nil {
		return err
	}
	deps.printf("Date: %s\nVotes today: %d/%d\nRemaining: %d\nState: %s\n",
		status.Date, status.VotesToday, status.DailyLimit, status.Remaining, status.State)
	return nil
}

// handleHistory handles the 'history' command.
func handleHistory(ctx context.Context, c *cli.Command, deps *cliDependencies, app *startup.App) error {
	records, err := app.Service.Recent(ctx, int(c.Int("limit")))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		deps.printf("No votes yet.\n")
		return nil
	}
	for _, r := range records {
		deps.printf("%s  %s beat %s\n", r.VotedAt.Format("2006-01-02 15:04:05"), r.WinnerName, r.LoserName)
	}
	return nil
}

// handleMigrate handles the 'migrate' command.
// 它不经过投票服务，直接打开两个存储后端并复制数据集。
func handleMigrate(deps *cliDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		from, to := c.String("from"), c.String("to")
		if from == to {
			return ErrSameBackend
		}

		cfg, logger, err := setup(c)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		source, err := startup.OpenStorage(ctx, from, cfg, logger)
		if err != nil {
			return fmt.Errorf("open source backend: %w", err)
		}
		defer func() { _ = source.Close() }()

		target, err := startup.OpenStorage(ctx, to, cfg, logger)
		if err != nil {
			return fmt.Errorf("open target backend: %w", err)
		}
		defer func() { _ = target.Close() }()

		ds, err := dataset.Copy(ctx, source.Repository, target.Repository)
		if err != nil {
			return err
		}

		logger.Info("数据集迁移完成", zap.String("from", from), zap.String("to", to))
		deps.printf("Copied %d characters and quota state (%s, %d votes) from %s to %s\n",
			len(ds.Characters), ds.User.LastPlayedDate, ds.User.VotesToday, from, to)
		return nil
	}
}
