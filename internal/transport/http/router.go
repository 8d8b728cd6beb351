package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/taskstate/tasksync/internal/config"
	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/core/services"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
	"github.com/taskstate/tasksync/internal/transport/http/handlers"
	httpmw "github.com/taskstate/tasksync/internal/transport/http/middleware"
)

type RouterConfig struct {
	Repository ports.TaskRepository
	Logger     *logger.Logger
	Config     *config.Config
}

// Services are the long-lived services the routes are bound to.
type Services struct {
	Tasks *services.TaskService
	Hub   *services.StatusHub
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) *Services {
	hub := services.NewStatusHub(cfg.Repository, cfg.Logger.Named("hub"))
	taskService := services.NewTaskService(cfg.Repository, hub, cfg.Logger.Named("tasks"))

	displayWindow := cfg.Config.Cleanup.DisplayWindow

	taskHandler := handlers.NewTaskHandler(taskService, displayWindow, cfg.Logger)
	pageHandler := handlers.NewPageHandler(taskService, displayWindow, cfg.Logger)
	channelHandler := handlers.NewChannelHandler(hub, cfg.Logger)
	healthHandler := handlers.NewHealthHandler(hub.Subscribers)

	app.Get("/health", healthHandler.Health)

	// Page with task indicators
	app.Get("/tasks", pageHandler.Tasks)

	// Push channels
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		// nothing to watch until some task is displayable
		tasks, err := taskService.ListForDisplay(c.Context(), displayWindow)
		if err != nil {
			cfg.Logger.Errorw("channel_upgrade_lookup_failed", "path", c.Path(), "error", err)
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		if len(tasks) == 0 {
			cfg.Logger.Debugw("channel_upgrade_rejected", "path", c.Path(), "reason", "no_tasks")
			return c.SendStatus(fiber.StatusForbidden)
		}
		c.Locals("allowed", true)
		return c.Next()
	})

	app.Get(services.StatusChannelPath, websocket.New(channelHandler.Status))
	app.Get(services.SeenChannelPath, websocket.New(channelHandler.Seen))

	// API v1 routes
	api := app.Group("/api/v1")

	tasks := api.Group("/tasks")
	tasks.Get("/", taskHandler.ListTasks)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Post("/", httpmw.AdminAuth(cfg.Config), taskHandler.ReportTask)
	tasks.Patch("/:id/progress", httpmw.AdminAuth(cfg.Config), taskHandler.UpdateProgress)
	tasks.Delete("/", httpmw.AdminAuth(cfg.Config), taskHandler.ClearTasks)

	return &Services{Tasks: taskService, Hub: hub}
}
