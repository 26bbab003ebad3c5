package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kitsapcommute/kitsapcommute/pkg/api/routes"
	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/events"
	"github.com/kitsapcommute/kitsapcommute/pkg/planner"
	"github.com/kitsapcommute/kitsapcommute/pkg/schedule"
)

type Dependencies struct {
	Planner   *planner.Planner
	Directory *directory.Directory
	Schedule  *schedule.Table
	Events    *events.Store
}

func SetupServer(listen string, dependencies Dependencies) error {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	webApp.Get("version", routes.APIVersion)

	planGroup := webApp.Group("/plan")
	routes.PlanRouter(planGroup, dependencies.Planner)

	terminalsGroup := webApp.Group("/terminals")
	routes.TerminalsRouter(terminalsGroup, dependencies.Directory, dependencies.Planner.DriveTime)

	sailingsGroup := webApp.Group("/sailings")
	routes.SailingsRouter(sailingsGroup, dependencies.Schedule)

	eventsGroup := webApp.Group("/events")
	routes.EventsRouter(eventsGroup, dependencies.Events)

	return webApp.Listen(listen)
}
