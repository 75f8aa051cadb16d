// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand prepares the local store and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and the cache database",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the cache database and apply migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example configuration file to --config",
				Action: r.SetupConfig,
			},
		},
	}
}

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "me",
				Usage: "Show the authenticated Spotify user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifyMe,
			},
		},
	}
}

func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Build a playlist of tracks matching a running cadence",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "cadence",
				Aliases:  []string{"n"},
				Usage:    "Target cadence in steps per minute (140-190)",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Select tracks without creating a playlist",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Follow progress and review the selection interactively",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the selection to a file (.csv, .md, .json or .txt)",
			},
			&cli.BoolFlag{
				Name:  "no-expand",
				Usage: "Skip similarity expansion and filter the library only",
			},
			&cli.BoolFlag{
				Name:  "ephemeral",
				Usage: "Cache in memory for this run only; nothing is written to disk",
			},
		},
		Action: r.Generate,
	}
}

func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Look up the tempo of specific tracks",
		ArgsUsage: "<track-id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Analyze,
	}
}

// cacheCommand inspects and resets the cache store
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or reset the cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show live, expired and permanent entries per namespace",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:      "tempo",
				Usage:     "Show cached tempo records",
				ArgsUsage: "<track-id>...",
				Action:    r.CacheTempo,
			},
			{
				Name:  "reset",
				Usage: "Delete the cache database file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Confirm deletion",
					},
				},
				Action: r.CacheReset,
			},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent generate runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}
