package routes

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kitsapcommute/kitsapcommute/pkg/schedule"
	"github.com/liip/sheriff"
)

func SailingsRouter(router fiber.Router, scheduleTable *schedule.Table) {
	router.Get("/:origin/:destination", func(c *fiber.Ctx) error {
		return getSailings(c, scheduleTable)
	})
}

func getSailings(c *fiber.Ctx, scheduleTable *schedule.Table) error {
	date := time.Now()

	if dateString := c.Query("date"); dateString != "" {
		var err error
		date, err = time.Parse("2006-01-02", dateString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter date should be formatted YYYY-MM-DD",
			})
		}
	}

	route, err := scheduleTable.Resolve(c.Params("origin"), c.Params("destination"))
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, schedule.ErrRouteNotFound) {
			status = fiber.StatusNotFound
		}

		c.SendStatus(status)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sailings, err := scheduleTable.SailingsFor(route.Key, date)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sailingsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, sailings)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sorry an unknown error occurred",
		})
	}

	return c.JSON(fiber.Map{
		"route":     route.Key,
		"direction": route.Direction(),
		"sailings":  sailingsReduced,
	})
}
