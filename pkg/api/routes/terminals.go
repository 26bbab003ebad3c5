package routes

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/planner"
	"github.com/liip/sheriff"
)

func TerminalsRouter(router fiber.Router, terminalDirectory *directory.Directory, driveTime planner.DriveTimeProvider) {
	router.Get("/", func(c *fiber.Ctx) error {
		return listTerminals(c, terminalDirectory, driveTime)
	})
}

func listTerminals(c *fiber.Ctx, terminalDirectory *directory.Directory, driveTime planner.DriveTimeProvider) error {
	count, err := strconv.Atoi(c.Query("count", "3"))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter count should be an integer",
		})
	}

	nearAddress := c.Query("near")
	if nearAddress == "" {
		terminalsReduced, err := sheriff.Marshal(&sheriff.Options{
			Groups: []string{"basic"},
		}, terminalDirectory.Terminals)
		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Sorry an unknown error occurred",
			})
		}

		return c.JSON(fiber.Map{
			"terminals": terminalsReduced,
		})
	}

	coordinates, err := driveTime.Geocode(c.Context(), nearAddress)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	nearest, err := terminalDirectory.NearestTerminals(coordinates, count)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	nearestReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, nearest)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sorry an unknown error occurred",
		})
	}

	return c.JSON(fiber.Map{
		"terminals": nearestReduced,
	})
}
