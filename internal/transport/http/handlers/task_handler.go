package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/taskstate/tasksync/internal/core/services"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
	"github.com/taskstate/tasksync/internal/transport/http/dto"
)

type TaskHandler struct {
	service       *services.TaskService
	displayWindow time.Duration
	logger        *logger.Logger
}

func NewTaskHandler(service *services.TaskService, displayWindow time.Duration, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{service: service, displayWindow: displayWindow, logger: logger}
}

func (h *TaskHandler) ReportTask(c *fiber.Ctx) error {
	var req dto.ReportTaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("task_report_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("task_report_validation_failed", "details", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	input := services.ReportTaskInput{
		MessageID:   uuid.MustParse(req.MessageID),
		Status:      domain.TaskStatus(req.Status),
		ActorName:   req.ActorName,
		QueueName:   req.QueueName,
		Description: req.Description,
		Progress:    req.Progress,
	}

	task, err := h.service.ReportTask(c.Context(), input)
	if err != nil {
		if errors.Is(err, services.ErrTaskInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("task_report_failed", "message_id", req.MessageID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.TaskToResponse(task))
}

func (h *TaskHandler) UpdateProgress(c *fiber.Ctx) error {
	id, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid task id"})
	}

	var req dto.UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	task, err := h.service.UpdateProgress(c.Context(), id, req.Progress)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "task not found"})
		case errors.Is(err, services.ErrTaskInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("task_progress_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.TaskToResponse(task))
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	id, err := parseTaskID(c)
	if err != nil {
		h.logger.Warnw("task_get_invalid_id", "id", c.Params("id"))
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid task id"})
	}

	task, err := h.service.GetTask(c.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "task not found"})
		}
		h.logger.Errorw("task_get_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.TaskToResponse(task))
}

func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.service.ListForDisplay(c.Context(), h.displayWindow)
	if err != nil {
		h.logger.Errorw("tasks_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.TasksToResponse(tasks))
}

func (h *TaskHandler) ClearTasks(c *fiber.Ctx) error {
	n, err := h.service.ClearAll(c.Context())
	if err != nil {
		h.logger.Errorw("tasks_clear_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.ClearTasksResponse{Deleted: n})
}

func parseTaskID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
