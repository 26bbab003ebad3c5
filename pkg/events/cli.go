package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kitsapcommute/kitsapcommute/pkg/config"
	"github.com/kitsapcommute/kitsapcommute/pkg/elastic_client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Manage the event search index",
		Subcommands: []*cli.Command{
			{
				Name:  "import",
				Usage: "bulk import events from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "path to a JSON array of events",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					if err := elastic_client.Connect(cfg, true); err != nil {
						return err
					}

					file, err := os.ReadFile(c.String("file"))
					if err != nil {
						return fmt.Errorf("failed to read events file: %w", err)
					}

					var importEvents []Event
					if err := json.Unmarshal(file, &importEvents); err != nil {
						return fmt.Errorf("failed to parse events file: %w", err)
					}

					for _, event := range importEvents {
						encoded, err := json.Marshal(event)
						if err != nil {
							return err
						}

						elastic_client.IndexRequest(cfg.EventIndex, bytes.NewReader(encoded))
					}

					elastic_client.WaitUntilQueueEmpty()

					log.Info().Int("events", len(importEvents)).Msg("Imported events")

					return nil
				},
			},
		},
	}
}
