package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskstate/tasksync/internal/domain"
)

type ReportTaskRequest struct {
	MessageID   string `json:"message_id" validate:"required,uuid"`
	Status      string `json:"status" validate:"required"`
	ActorName   string `json:"actor_name,omitempty"`
	QueueName   string `json:"queue_name,omitempty"`
	Description string `json:"description,omitempty"`
	Progress    *int   `json:"progress,omitempty"`
}

func (r *ReportTaskRequest) Validate() []string {
	var errors []string

	if r.MessageID == "" {
		errors = append(errors, "message_id is required")
	} else if _, err := uuid.Parse(r.MessageID); err != nil {
		errors = append(errors, "message_id is not a valid UUID")
	}

	if r.Status == "" {
		errors = append(errors, "status is required")
	} else if !domain.TaskStatus(r.Status).IsKnown() {
		errors = append(errors, "status must be one of: enqueued, delayed, running, failed, done, skipped")
	}

	if r.Progress != nil && (*r.Progress < 0 || *r.Progress > 100) {
		errors = append(errors, "progress must be between 0 and 100")
	}

	return errors
}

type UpdateProgressRequest struct {
	Progress int `json:"progress"`
}

type TaskResponse struct {
	ID          uint       `json:"id"`
	MessageID   string     `json:"message_id"`
	Status      string     `json:"status"`
	ActorName   string     `json:"actor_name,omitempty"`
	QueueName   string     `json:"queue_name,omitempty"`
	Description string     `json:"description,omitempty"`
	Progress    int        `json:"progress"`
	Seen        bool       `json:"seen"`
	SeenAt      *time.Time `json:"seen_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func TaskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		MessageID:   task.MessageID.String(),
		Status:      task.Status.String(),
		ActorName:   task.ActorName,
		QueueName:   task.QueueName,
		Description: task.Description,
		Progress:    task.Progress,
		Seen:        task.Seen,
		SeenAt:      task.SeenAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func TasksToResponse(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, TaskToResponse(&tasks[i]))
	}
	return out
}

type ClearTasksResponse struct {
	Deleted int64 `json:"deleted"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
