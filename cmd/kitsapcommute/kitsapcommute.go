package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/kitsapcommute/kitsapcommute/pkg/api"
	"github.com/kitsapcommute/kitsapcommute/pkg/events"
	"github.com/kitsapcommute/kitsapcommute/pkg/mcpserver"
	"github.com/kitsapcommute/kitsapcommute/pkg/planner"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("KITSAPCOMMUTE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("KITSAPCOMMUTE_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "kitsapcommute",
		Description: "Single binary of truth for Kitsap Commute - runs all the services",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			events.RegisterCLI(),
			mcpserver.RegisterCLI(),
			planner.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
