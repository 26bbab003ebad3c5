package planner

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kitsapcommute/kitsapcommute/pkg/config"
	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/maps"
	"github.com/kitsapcommute/kitsapcommute/pkg/redis_client"
	"github.com/kitsapcommute/kitsapcommute/pkg/schedule"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
	"github.com/kitsapcommute/kitsapcommute/pkg/wsf"
	"github.com/liip/sheriff"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Plan a one-off commute from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "origin",
				Usage:    "street address of the starting point",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "destination",
				Usage:    "street address of the event",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "event-time",
				Usage:    "RFC3339 event start time",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "buffer",
				Value: DefaultArrivalBufferMinutes,
				Usage: "required arrival slack in minutes",
			},
			&cli.IntFlag{
				Name:  "count",
				Value: DefaultMaxOptions,
				Usage: "maximum route options to return",
			},
			&cli.StringFlag{
				Name:  "vehicle",
				Value: string(transit.VehicleClassStandard),
				Usage: "vehicle class: walk-on, standard, small or motorcycle",
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

			terminalDirectory, err := directory.LoadFile(cfg.DataDirectory)
			if err != nil {
				return err
			}
			scheduleTable, err := schedule.LoadFile(cfg.DataDirectory)
			if err != nil {
				return err
			}

			eventTime, err := time.Parse(time.RFC3339, c.String("event-time"))
			if err != nil {
				return fmt.Errorf("event-time should be an RFC3339 datetime: %w", err)
			}

			var driveTime DriveTimeProvider = maps.NewClient(cfg.GoogleMapsAPIKey)
			if redis_client.Connected() {
				driveTime = NewCachedDriveTimeProvider(driveTime)
			}

			commutePlanner := NewPlanner(terminalDirectory, scheduleTable, driveTime, wsf.NewClient(cfg.WSDOTAPIKey))

			options, err := commutePlanner.Plan(c.Context, Request{
				OriginAddress:        c.String("origin"),
				DestinationAddress:   c.String("destination"),
				EventTime:            eventTime,
				ArrivalBufferMinutes: c.Int("buffer"),
				MaxOptions:           c.Int("count"),
				VehicleClass:         transit.VehicleClass(c.String("vehicle")),
			})
			if err != nil {
				return err
			}

			optionsReduced, err := sheriff.Marshal(&sheriff.Options{
				Groups: []string{"basic", "detailed"},
			}, options)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(optionsReduced, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(encoded))

			return nil
		},
	}
}
