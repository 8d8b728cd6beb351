package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// progressPublishStep throttles progress pushes to every tenth percent.
const progressPublishStep = 10

type ReportTaskInput struct {
	MessageID   uuid.UUID
	Status      domain.TaskStatus
	ActorName   string
	QueueName   string
	Description string
	// Progress is left untouched when nil.
	Progress *int
}

type TaskService struct {
	repo      ports.TaskRepository
	publisher ports.TaskPublisher
	logger    *logger.Logger
}

func NewTaskService(repo ports.TaskRepository, publisher ports.TaskPublisher, log *logger.Logger) *TaskService {
	if log == nil {
		log = logger.NewNop()
	}
	return &TaskService{repo: repo, publisher: publisher, logger: log}
}

// ==================== Task Reporting ====================

// ReportTask records a lifecycle transition of a queue message and pushes
// the new state to subscribers.
func (s *TaskService) ReportTask(ctx context.Context, input ReportTaskInput) (*domain.Task, error) {
	if input.MessageID == uuid.Nil {
		return nil, fmt.Errorf("%w: message_id is required", ErrTaskInvalidInput)
	}
	if !input.Status.IsKnown() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrTaskInvalidInput, input.Status)
	}
	if input.Progress != nil {
		if err := validateProgress(*input.Progress); err != nil {
			return nil, err
		}
	}

	task := &domain.Task{
		MessageID:   input.MessageID,
		Status:      input.Status,
		ActorName:   input.ActorName,
		QueueName:   input.QueueName,
		Description: input.Description,
	}
	if input.Progress != nil {
		task.Progress = *input.Progress
	}
	if err := s.repo.CreateOrUpdate(ctx, task); err != nil {
		return nil, err
	}

	// the upsert keeps the stored progress of an existing row
	if input.Progress != nil && task.Progress != *input.Progress {
		updated, err := s.repo.UpdateProgress(ctx, task.ID, *input.Progress)
		if err != nil {
			return nil, err
		}
		task = updated
	}

	s.logger.Infow("task_reported", "task_id", task.ID, "message_id", task.MessageID, "status", task.Status)
	s.publish(ctx, task)
	return task, nil
}

// UpdateProgress stores a new completion percentage. Subscribers are only
// notified on multiples of ten.
func (s *TaskService) UpdateProgress(ctx context.Context, id uint, progress int) (*domain.Task, error) {
	if err := validateProgress(progress); err != nil {
		return nil, err
	}

	task, err := s.repo.UpdateProgress(ctx, id, progress)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if progress%progressPublishStep == 0 {
		s.publish(ctx, task)
	}
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uint) (*domain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListForDisplay returns the tasks a page should render: everything not yet
// seen plus tasks seen within window.
func (s *TaskService) ListForDisplay(ctx context.Context, window time.Duration) ([]domain.Task, error) {
	return s.repo.ListForDisplay(ctx, time.Now().Add(-window))
}

// ClearAll deletes every task record.
func (s *TaskService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Infow("tasks_cleared", "deleted", n)
	return n, nil
}

func (s *TaskService) publish(ctx context.Context, task *domain.Task) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, task)
}

func validateProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: progress %d out of range", ErrTaskInvalidInput, progress)
	}
	return nil
}
