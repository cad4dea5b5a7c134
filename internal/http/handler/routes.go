package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"bookbuddy/internal/service"
	"bookbuddy/internal/storage"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, store storage.Storage, sessSvc service.SessionService, rendSvc service.RenditionService) {
	app.Get("/health", HealthCheck(db, store))
	app.Get("/healthz", LivenessProbe())

	sessions := app.Group("/sessions")
	sessions.Post("/", CreateSession(sessSvc))
	sessions.Get("/:id", GetSession(sessSvc))
	sessions.Delete("/:id", DeleteSession(sessSvc))
	sessions.Post("/:id/clear", ClearSession(sessSvc))

	sessions.Get("/:id/settings", ExportSettings(sessSvc))
	sessions.Put("/:id/settings", ImportSettings(sessSvc))
	sessions.Put("/:id/form", UpdateForm(sessSvc))
	sessions.Put("/:id/metadata", UpdateMetadata(sessSvc))

	sessions.Get("/:id/recording", GetRecording(sessSvc))
	sessions.Post("/:id/recording/start", StartRecording(sessSvc))
	sessions.Post("/:id/recording/chunks", PushChunk(sessSvc))
	sessions.Post("/:id/recording/stop", StopRecording(sessSvc))

	sessions.Post("/:id/send", SendPending(sessSvc))
	sessions.Post("/:id/send/text", SendText(sessSvc))
	sessions.Post("/:id/send/file", SendFile(sessSvc))
	sessions.Post("/:id/send/test", SendTest(sessSvc))
	sessions.Post("/:id/fetch", FetchDocument(sessSvc))

	sessions.Get("/:id/history", GetHistory(sessSvc))
	sessions.Get("/:id/deliveries", GetDeliveryLog(sessSvc))
	sessions.Post("/:id/render", RenderSession(sessSvc))

	renditions := app.Group("/renditions")
	renditions.Get("/", ListRenditions(rendSvc))
	renditions.Get("/:id", GetRendition(rendSvc))
	renditions.Get("/:id/file", DownloadRendition(rendSvc))
	renditions.Delete("/:id", DeleteRendition(rendSvc))
}
