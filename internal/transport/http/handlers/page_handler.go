package handlers

import (
	"bytes"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/taskstate/tasksync/internal/core/services"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

var pageTemplate = template.Must(template.New("tasks").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Tasks</title></head>
<body>
<ul class="task-list">
{{- range .}}
<li>
<div class="task-status{{if .Status.IsActive}} active{{end}}" data-pk="{{.ID}}" data-status="{{.Status}}">
<span class="task-status-text">{{.Status}}</span>
{{- if .Status.IsActive}}<span class="progress">{{if .Progress}}{{.Progress}}%{{end}}</span>{{end}}
</div>
<span class="task-description">{{if .Description}}{{.Description}}{{else}}{{.ActorName}}{{end}}</span>
</li>
{{- end}}
</ul>
</body>
</html>
`))

// PageHandler renders the task indicators a watch client binds to.
type PageHandler struct {
	service       *services.TaskService
	displayWindow time.Duration
	logger        *logger.Logger
}

func NewPageHandler(service *services.TaskService, displayWindow time.Duration, logger *logger.Logger) *PageHandler {
	return &PageHandler{service: service, displayWindow: displayWindow, logger: logger}
}

func (h *PageHandler) Tasks(c *fiber.Ctx) error {
	tasks, err := h.service.ListForDisplay(c.Context(), h.displayWindow)
	if err != nil {
		h.logger.Errorw("task_page_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("failed to load tasks")
	}

	page, err := RenderTasks(tasks)
	if err != nil {
		h.logger.Errorw("task_page_render_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).SendString("failed to render tasks")
	}

	c.Type("html", "utf-8")
	return c.SendString(page)
}

// RenderTasks writes one indicator per task, active ones flagged.
func RenderTasks(tasks []domain.Task) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, tasks); err != nil {
		return "", err
	}
	return buf.String(), nil
}
