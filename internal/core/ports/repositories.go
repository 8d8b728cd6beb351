package ports

import (
	"context"
	"time"

	"github.com/taskstate/tasksync/internal/domain"
)

type TaskRepository interface {
	// CreateOrUpdate upserts by MessageID and fills task with the stored row.
	// Progress is only written when the row is created.
	CreateOrUpdate(ctx context.Context, task *domain.Task) error
	// UpdateProgress sets the progress of an existing task and returns the stored row.
	UpdateProgress(ctx context.Context, id uint, progress int) (*domain.Task, error)
	GetByID(ctx context.Context, id uint) (*domain.Task, error)
	GetByIDs(ctx context.Context, ids []uint) ([]domain.Task, error)
	// ListForDisplay returns unseen tasks plus those seen after seenSince.
	ListForDisplay(ctx context.Context, seenSince time.Time) ([]domain.Task, error)
	// MarkSeen flags the completed, unseen tasks among ids and returns how many changed.
	MarkSeen(ctx context.Context, ids []uint, at time.Time) (int64, error)
	// DeleteCompleted removes completed tasks created before cutoff.
	DeleteCompleted(ctx context.Context, cutoff time.Time, onlyIfSeen bool) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// TaskPublisher pushes task changes to connected status subscribers.
type TaskPublisher interface {
	Publish(ctx context.Context, task *domain.Task)
}
