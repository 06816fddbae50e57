package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Amund211/haloclient/internal/apiclient"
	"github.com/Amund211/haloclient/internal/benchmark"
	"github.com/Amund211/haloclient/internal/domain"
	"github.com/Amund211/haloclient/internal/matchmaking"
)

var errMissingCredentials = errors.New("missing credentials, pass --username and --password")

func resultError[T any](operation string, result apiclient.Result[T]) error {
	if result.OK() {
		return nil
	}
	return fmt.Errorf("%s failed (%s error): %w", operation, result.Kind(), result.Err)
}

// withDependencies builds the client for one command and tears it down afterwards
func withDependencies(factory dependencyFactory, action func(c *cli.Context, deps *dependencies) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		deps, err := factory(c.Context)
		if err != nil {
			return err
		}
		defer deps.close()

		return action(c, deps)
	}
}

func login(c *cli.Context, client *apiclient.Client) (domain.LoginResponse, error) {
	username := c.String("username")
	password := c.String("password")
	if username == "" || password == "" {
		return domain.LoginResponse{}, errMissingCredentials
	}

	result := client.Login(c.Context, username, password)
	if err := resultError("login", result); err != nil {
		return domain.LoginResponse{}, err
	}
	return result.Data, nil
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func newApp(w io.Writer, factory dependencyFactory) *cli.App {
	return &cli.App{
		Name:   "haloclient",
		Usage:  "talk to the Halo game backend",
		Writer: w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Usage:   "account to log in as",
				EnvVars: []string{"HALO_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "password for --username",
				EnvVars: []string{"HALO_PASSWORD"},
			},
		},
		Commands: []*cli.Command{
			newLoginCommand(factory),
			newStatsCommand(factory),
			newLeaderboardCommand(factory),
			newMapsCommand(factory),
			newWeaponsCommand(factory),
			newGameStateCommand(factory),
			newRequestCommand(factory),
			newMatchmakeCommand(factory),
			newBenchmarkCommand(factory),
		},
	}
}

func newLoginCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "verify credentials",
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			response, err := login(c, deps.client)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Logged in as %s (id %d, role %s)\n", response.Username, response.ID, response.Role)
			return nil
		}),
	}
}

func newStatsCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show career stats for a player",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "player",
				Usage: "player id, defaults to the logged in player",
			},
		},
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			response, err := login(c, deps.client)
			if err != nil {
				return err
			}

			playerID := c.Int64("player")
			if playerID == 0 {
				playerID = response.ID
			}

			result := deps.client.GetPlayerStats(c.Context, playerID)
			if err := resultError("stats", result); err != nil {
				return err
			}

			stats := result.Data
			w := c.App.Writer
			fmt.Fprintf(w, "%s (id %d)\n", stats.Gamertag, stats.PlayerID)
			fmt.Fprintf(w, "Rank: %s (level %d, %.0f%% to next)\n", stats.RankName(), stats.RankLevel, stats.RankProgress()*100)
			fmt.Fprintf(w, "K/D/A: %d/%d/%d (K/D %.2f)\n", stats.TotalKills, stats.TotalDeaths, stats.TotalAssists, stats.KDRatio())
			fmt.Fprintf(w, "Matches: %d played, %d won (%.0f%% win rate)\n", stats.MatchesPlayed, stats.MatchesWon, stats.WinRatio()*100)
			fmt.Fprintf(w, "Medals: %d\n", stats.MedalCount())
			return nil
		}),
	}
}

func newLeaderboardCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "show the top players for a stat",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "stat", Value: "kills"},
			&cli.IntFlag{Name: "limit", Value: 10},
		},
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			result := deps.client.GetLeaderboard(c.Context, c.String("stat"), c.Int("limit"))
			if err := resultError("leaderboard", result); err != nil {
				return err
			}

			for _, entry := range result.Data {
				fmt.Fprintf(c.App.Writer, "%3d. %-24s %.0f\n", entry.Rank, entry.Gamertag, entry.Value)
			}
			return nil
		}),
	}
}

func formatMap(customMap domain.CustomMap) string {
	id := "-"
	if customMap.ID != nil {
		id = fmt.Sprint(*customMap.ID)
	}
	rating := "unrated"
	if customMap.Rating != nil {
		rating = fmt.Sprintf("rating %.1f", *customMap.Rating)
	}
	downloads := 0
	if customMap.DownloadCount != nil {
		downloads = *customMap.DownloadCount
	}
	return fmt.Sprintf("%s  %s by %s (%s, %s, %d downloads)", id, customMap.MapName, customMap.AuthorGamertag, customMap.GameMode, rating, downloads)
}

func newMapsCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "maps",
		Usage: "browse and share custom maps",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: "only show maps for this game mode"},
			&cli.StringFlag{Name: "sort", Value: "rating"},
			&cli.IntFlag{Name: "page", Value: 0},
			&cli.IntFlag{Name: "size", Value: 20},
		},
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			result := deps.client.BrowseMaps(c.Context, apiclient.BrowseOptions{
				GameMode: c.String("mode"),
				SortBy:   c.String("sort"),
				Page:     c.Int("page"),
				PageSize: c.Int("size"),
			})
			if err := resultError("browse maps", result); err != nil {
				return err
			}

			for _, customMap := range result.Data {
				fmt.Fprintln(c.App.Writer, formatMap(customMap))
			}
			return nil
		}),
		Subcommands: []*cli.Command{
			{
				Name:  "download",
				Usage: "print a map including its forge data",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Required: true},
				},
				Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
					if _, err := login(c, deps.client); err != nil {
						return err
					}

					result := deps.client.DownloadMap(c.Context, c.Int64("id"))
					if err := resultError("download map", result); err != nil {
						return err
					}
					return printJSON(c.App.Writer, result.Data)
				}),
			},
			{
				Name:  "upload",
				Usage: "upload a map from a json file",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: "file", Required: true},
				},
				Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
					raw, err := os.ReadFile(c.Path("file"))
					if err != nil {
						return fmt.Errorf("failed to read map: %w", err)
					}
					var customMap domain.CustomMap
					if err := json.Unmarshal(raw, &customMap); err != nil {
						return fmt.Errorf("failed to parse map: %w", err)
					}

					if _, err := login(c, deps.client); err != nil {
						return err
					}

					result := deps.client.UploadMap(c.Context, customMap)
					if err := resultError("upload map", result); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Uploaded %s\n", formatMap(result.Data))
					return nil
				}),
			},
		},
	}
}

func newWeaponsCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "weapons",
		Usage: "list weapon metadata",
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			result := deps.client.GetWeapons(c.Context)
			if err := resultError("weapons", result); err != nil {
				return err
			}

			for _, weapon := range result.Data {
				fmt.Fprintf(c.App.Writer, "%-20s %-10s damage %3d ammo %3d rate %.1f\n",
					weapon.Name, weapon.Type, weapon.Damage, weapon.Ammo, weapon.FireRate)
			}
			return nil
		}),
	}
}

func newGameStateCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "game-state",
		Usage: "show the current game state",
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			result := deps.client.GetGameState(c.Context)
			if err := resultError("game state", result); err != nil {
				return err
			}
			return printJSON(c.App.Writer, result.Data)
		}),
	}
}

func newRequestCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "request",
		Usage: "send a raw request to an endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "endpoint", Required: true},
			&cli.StringFlag{Name: "method", Value: "GET"},
			&cli.StringFlag{Name: "body"},
		},
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			if c.String("username") != "" {
				if _, err := login(c, deps.client); err != nil {
					return err
				}
			}

			result := deps.client.GenericRequest(c.Context, c.String("endpoint"), c.String("method"), c.String("body"))
			if err := resultError("request", result); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, result.Data)
			return nil
		}),
	}
}

type printingConnector struct {
	w io.Writer
}

func (p printingConnector) Connect(ctx context.Context, ticket domain.MatchmakingTicket) error {
	fmt.Fprintf(p.w, "Connecting to match %s\n", ticket.TicketID)
	return nil
}

func newMatchmakeCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "matchmake",
		Usage: "search for a match until one is found, the search times out or Ctrl-C is pressed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "playlist", Value: domain.PlaylistRankedSlayer},
			&cli.Int64SliceFlag{Name: "player", Usage: "player ids in the party"},
		},
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			playerIDs := c.Int64Slice("player")
			if c.String("username") != "" {
				response, err := login(c, deps.client)
				if err != nil {
					return err
				}
				if len(playerIDs) == 0 {
					playerIDs = []int64{response.ID}
				}
			}

			w := c.App.Writer
			session := matchmaking.NewSession(
				deps.client,
				deps.pollInterval,
				deps.maxWait,
				time.Now,
				time.After,
				matchmaking.WithConnector(printingConnector{w: w}),
			)

			var searchErr error
			session.OnProgress.Subscribe(func(ctx context.Context, event matchmaking.ProgressEvent) {
				fmt.Fprintf(w, "Searching %s... %s\n", event.Ticket.Playlist, event.Elapsed.Round(time.Second))
			})
			session.OnMatchFound.Subscribe(func(ctx context.Context, event matchmaking.MatchFoundEvent) {
				fmt.Fprintf(w, "Match found after %s\n", event.Elapsed.Round(time.Second))
			})
			session.OnCancelled.Subscribe(func(ctx context.Context, event matchmaking.CancelledEvent) {
				fmt.Fprintln(w, "Matchmaking cancelled")
			})
			session.OnError.Subscribe(func(ctx context.Context, event matchmaking.ErrorEvent) {
				if searchErr == nil {
					searchErr = event.Err
				}
			})

			session.Start(c.Context, c.String("playlist"), playerIDs)
			session.Wait()

			return searchErr
		}),
	}
}

func printReport(w io.Writer, report benchmark.Report) {
	fmt.Fprintf(w, "Run %s\n", report.RunID)
	for _, measurement := range report.Measurements {
		outcome := "ok"
		if !measurement.Success {
			outcome = measurement.Error
		}
		fmt.Fprintf(w, "  %-12s %8.1fms  status %3d  %s\n",
			measurement.Operation,
			float64(measurement.Latency.Microseconds())/1000,
			measurement.StatusCode,
			outcome,
		)
	}
	fmt.Fprintf(w, "%d/%d operations succeeded in %s\n", report.Successes(), len(report.Measurements), report.Duration.Round(time.Millisecond))
}

func newBenchmarkCommand(factory dependencyFactory) *cli.Command {
	return &cli.Command{
		Name:  "benchmark",
		Usage: "time the core operations concurrently",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "player", Value: benchmark.DefaultOptions().PlayerID},
			&cli.BoolFlag{Name: "record", Usage: "store the run in the database"},
		},
		Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
			opts := benchmark.DefaultOptions()
			if username := c.String("username"); username != "" {
				opts.Username = username
				opts.Password = c.String("password")
			}
			opts.PlayerID = c.Int64("player")

			report := benchmark.Run(c.Context, deps.client, opts)
			printReport(c.App.Writer, report)

			if !c.Bool("record") {
				return nil
			}

			repo, err := deps.openRepository(c.Context)
			if err != nil {
				return err
			}
			if err := repo.StoreReport(c.Context, deps.baseURL, report); err != nil {
				return fmt.Errorf("failed to record benchmark: %w", err)
			}
			fmt.Fprintln(c.App.Writer, "Recorded run")
			return nil
		}),
		Subcommands: []*cli.Command{
			{
				Name:  "history",
				Usage: "show recorded runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 10},
				},
				Action: withDependencies(factory, func(c *cli.Context, deps *dependencies) error {
					repo, err := deps.openRepository(c.Context)
					if err != nil {
						return err
					}

					runs, err := repo.RecentRuns(c.Context, c.Int("limit"))
					if err != nil {
						return fmt.Errorf("failed to list benchmarks: %w", err)
					}
					for _, run := range runs {
						fmt.Fprintf(c.App.Writer, "%s against %s\n", run.Report.StartedAt.Format(time.RFC3339), run.BaseURL)
						printReport(c.App.Writer, run.Report)
					}
					return nil
				}),
			},
		},
	}
}
