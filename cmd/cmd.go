package main

import (
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, database and token store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage OAuth credentials for both services",
		Commands: []*cli.Command{
			{
				Name:      "login",
				Usage:     "Authorize a service via the browser flow",
				ArgsUsage: "<anilist|mal>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "service"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show stored token state for both services",
				Action: r.AuthStatus,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
				},
			},
			{
				Name:      "refresh",
				Usage:     "Refresh an access token if the service supports it",
				ArgsUsage: "<anilist|mal>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "service"},
				},
				Action: r.AuthRefresh,
			},
		},
	}
}

func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run sync cycles, once or on a schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Sync direction: bidirectional, anilist-to-mal or mal-to-anilist",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single cycle and exit",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Resolve differences without writing to either service",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write the cycle report to this file (with --once; .md for Markdown)",
			},
			&cli.IntFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Minutes between scheduled cycles (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "no-web",
				Usage: "Disable the monitoring dashboard",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Dashboard port (overrides config)",
			},
		},
		Action: r.Run,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the state of a running sync process",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Open the interactive live monitor",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Dashboard base URL (defaults to the configured server address)",
			},
		},
		Action: r.Status,
	}
}

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local AniList/MAL ID mapping cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show how many correlations are cached",
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Drop all cached correlations",
				Action: r.CacheClear,
			},
		},
	}
}
