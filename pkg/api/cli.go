package api

import (
	"github.com/kitsapcommute/kitsapcommute/pkg/config"
	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/elastic_client"
	"github.com/kitsapcommute/kitsapcommute/pkg/events"
	"github.com/kitsapcommute/kitsapcommute/pkg/maps"
	"github.com/kitsapcommute/kitsapcommute/pkg/planner"
	"github.com/kitsapcommute/kitsapcommute/pkg/redis_client"
	"github.com/kitsapcommute/kitsapcommute/pkg/schedule"
	"github.com/kitsapcommute/kitsapcommute/pkg/wsf"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the commute planning web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := cfg.ValidateProviders(); err != nil {
						return err
					}

					if err := redis_client.Connect(cfg); err != nil {
						return err
					}
					if err := elastic_client.Connect(cfg, false); err != nil {
						return err
					}

					terminalDirectory, err := directory.LoadFile(cfg.DataDirectory)
					if err != nil {
						return err
					}
					scheduleTable, err := schedule.LoadFile(cfg.DataDirectory)
					if err != nil {
						return err
					}

					var driveTime planner.DriveTimeProvider = maps.NewClient(cfg.GoogleMapsAPIKey)
					if redis_client.Connected() {
						driveTime = planner.NewCachedDriveTimeProvider(driveTime)
					}

					commutePlanner := planner.NewPlanner(
						terminalDirectory,
						scheduleTable,
						driveTime,
						wsf.NewClient(cfg.WSDOTAPIKey),
					)

					return SetupServer(c.String("listen"), Dependencies{
						Planner:   commutePlanner,
						Directory: terminalDirectory,
						Schedule:  scheduleTable,
						Events:    events.NewStore(elastic_client.Client, cfg.EventIndex),
					})
				},
			},
		},
	}
}
