package routes

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kitsapcommute/kitsapcommute/pkg/planner"
	"github.com/kitsapcommute/kitsapcommute/pkg/transit"
	"github.com/liip/sheriff"
)

func PlanRouter(router fiber.Router, commutePlanner *planner.Planner) {
	router.Get("/", func(c *fiber.Ctx) error {
		return getPlan(c, commutePlanner)
	})
}

func getPlan(c *fiber.Ctx, commutePlanner *planner.Planner) error {
	originAddress := c.Query("origin")
	destinationAddress := c.Query("destination")

	if originAddress == "" || destinationAddress == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameters origin and destination are required",
		})
	}

	eventTimeString := c.Query("datetime")
	eventTime, err := time.Parse(time.RFC3339, eventTimeString)
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter datetime should be an RFC3339/ISO8601 datetime",
		})
	}

	bufferMinutes, err := strconv.Atoi(c.Query("buffer", strconv.Itoa(planner.DefaultArrivalBufferMinutes)))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter buffer should be an integer",
		})
	}

	maxOptions, err := strconv.Atoi(c.Query("count", strconv.Itoa(planner.DefaultMaxOptions)))
	if err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Parameter count should be an integer",
		})
	}

	options, err := commutePlanner.Plan(c.Context(), planner.Request{
		OriginAddress:        originAddress,
		DestinationAddress:   destinationAddress,
		EventTime:            eventTime,
		ArrivalBufferMinutes: bufferMinutes,
		MaxOptions:           maxOptions,
		VehicleClass:         transit.VehicleClass(c.Query("vehicle", string(transit.VehicleClassStandard))),
	})
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, planner.ErrNoFeasibleRoute) {
			status = fiber.StatusNotFound
		} else if errors.Is(err, planner.ErrGeocodeFailed) {
			status = fiber.StatusBadRequest
		}

		c.SendStatus(status)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	optionsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, options)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sorry an unknown error occurred",
		})
	}

	return c.JSON(fiber.Map{
		"options": optionsReduced,
	})
}
