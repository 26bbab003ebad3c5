package routes

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kitsapcommute/kitsapcommute/pkg/events"
)

func EventsRouter(router fiber.Router, eventStore *events.Store) {
	router.Get("/search", func(c *fiber.Ctx) error {
		return searchEvents(c, eventStore)
	})
	router.Post("/", func(c *fiber.Ctx) error {
		return createEvent(c, eventStore)
	})
}

func searchEvents(c *fiber.Ctx, eventStore *events.Store) error {
	query := events.Query{
		Topic:            c.Query("topic"),
		Title:            c.Query("title"),
		Location:         c.Query("location"),
		DescriptionQuery: c.Query("description"),
	}

	if startString := c.Query("start"); startString != "" {
		startTime, err := time.Parse(time.RFC3339, startString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter start should be an RFC3339/ISO8601 datetime",
			})
		}
		query.StartTime = &startTime
	}
	if endString := c.Query("end"); endString != "" {
		endTime, err := time.Parse(time.RFC3339, endString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter end should be an RFC3339/ISO8601 datetime",
			})
		}
		query.EndTime = &endTime
	}

	if presentingString := c.Query("presenting"); presentingString != "" {
		presenting, err := strconv.ParseBool(presentingString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter presenting should be a boolean",
			})
		}
		query.Presenting = &presenting
	}

	if topKString := c.Query("count"); topKString != "" {
		topK, err := strconv.Atoi(topKString)
		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter count should be an integer",
			})
		}
		query.TopK = topK
	}

	matched, err := eventStore.Search(c.Context(), query)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, events.ErrBackendUnavailable) {
			status = fiber.StatusServiceUnavailable
		}

		c.SendStatus(status)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"events": matched,
	})
}

func createEvent(c *fiber.Ctx, eventStore *events.Store) error {
	var event events.Event
	if err := c.BodyParser(&event); err != nil {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Request body should be a JSON event",
		})
	}

	if event.Title == "" || event.Description == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Fields title and description are required",
		})
	}

	id, err := eventStore.Create(c.Context(), event)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, events.ErrBackendUnavailable) {
			status = fiber.StatusServiceUnavailable
		}

		c.SendStatus(status)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.SendStatus(fiber.StatusCreated)
	return c.JSON(fiber.Map{
		"id": id,
	})
}
