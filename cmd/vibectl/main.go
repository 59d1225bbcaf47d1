package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp 构建命令行应用，所有输出写入 out
func newApp(out io.Writer) *cli.Command {
	deps := &cliDependencies{out: out}

	return &cli.Command{
		Name:  "vibectl",
		Usage: "Vote on matchups and inspect the vibeoff leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.yaml (searched in ./config and . when empty)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print info level logs",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "matchup",
				Usage:  "Show a random matchup",
				Action: withApp(deps, handleMatchup),
			},
			{
				Name:  "vote",
				Usage: "Record a vote for a matchup",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "winner", Aliases: []string{"w"}, Usage: "ID of the winning character", Required: true},
					&cli.IntFlag{Name: "loser", Aliases: []string{"l"}, Usage: "ID of the losing character", Required: true},
					&cli.StringFlag{Name: "pair-id", Usage: "Matchup ticket id, when tickets are required"},
					&cli.StringFlag{Name: "signature", Usage: "Matchup ticket signature, when tickets are required"},
				},
				Action: withApp(deps, handleVote),
			},
			{
				Name:  "leaderboard",
				Usage: "Show the top characters",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: defaultLeaderboardLimit, Usage: "Number of characters to show"},
				},
				Action: withApp(deps, handleLeaderboard),
			},
			{
				Name:   "status",
				Usage:  "Show today's vote quota",
				Action: withApp(deps, handleStatus),
			},
			{
				Name:  "history",
				Usage: "Show the most recent votes",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Number of votes to show"},
				},
				Action: withApp(deps, handleHistory),
			},
			{
				Name:  "migrate",
				Usage: "Copy the dataset from one storage backend to another",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Source backend (file, sqlite, postgres, redis)", Required: true},
					&cli.StringFlag{Name: "to", Usage: "Target backend (file, sqlite, postgres, redis)", Required: true},
				},
				Action: handleMigrate(deps),
			},
		},
	}
}
