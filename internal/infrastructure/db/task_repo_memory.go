package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// MemoryTaskRepository keeps tasks in process. It backs the server's memory
// mode and the tests.
type MemoryTaskRepository struct {
	mu     sync.RWMutex
	tasks  map[uint]*domain.Task
	nextID uint
	logger *logger.Logger
}

func NewMemoryTaskRepository(log *logger.Logger) *MemoryTaskRepository {
	if log == nil {
		log = logger.NewNop()
	}
	return &MemoryTaskRepository{
		tasks:  make(map[uint]*domain.Task),
		nextID: 1,
		logger: log,
	}
}

var _ ports.TaskRepository = (*MemoryTaskRepository)(nil)

func (r *MemoryTaskRepository) CreateOrUpdate(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, existing := range r.tasks {
		if existing.MessageID == task.MessageID {
			existing.Status = task.Status
			existing.ActorName = task.ActorName
			existing.QueueName = task.QueueName
			existing.Description = task.Description
			existing.UpdatedAt = now
			*task = *existing
			r.logger.Debugw("task_repo_update_ok", "id", task.ID, "status", task.Status)
			return nil
		}
	}

	stored := *task
	stored.ID = r.nextID
	r.nextID++
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Status == "" {
		stored.Status = domain.TaskStatusEnqueued
	}
	r.tasks[stored.ID] = &stored
	*task = stored
	r.logger.Debugw("task_repo_create_ok", "id", task.ID, "status", task.Status)
	return nil
}

func (r *MemoryTaskRepository) UpdateProgress(ctx context.Context, id uint, progress int) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	task.Progress = progress
	task.UpdatedAt = time.Now()
	copied := *task
	return &copied, nil
}

func (r *MemoryTaskRepository) GetByID(ctx context.Context, id uint) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *task
	return &copied, nil
}

func (r *MemoryTaskRepository) GetByIDs(ctx context.Context, ids []uint) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		if task, ok := r.tasks[id]; ok {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryTaskRepository) ListForDisplay(ctx context.Context, seenSince time.Time) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		if !task.Seen || (task.SeenAt != nil && !task.SeenAt.Before(seenSince)) {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryTaskRepository) MarkSeen(ctx context.Context, ids []uint, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	for _, id := range ids {
		task, ok := r.tasks[id]
		if !ok || task.Seen || !task.IsComplete() {
			continue
		}
		seenAt := at
		task.Seen = true
		task.SeenAt = &seenAt
		updated++
	}
	return updated, nil
}

func (r *MemoryTaskRepository) DeleteCompleted(ctx context.Context, cutoff time.Time, onlyIfSeen bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, task := range r.tasks {
		if !task.IsComplete() || task.CreatedAt.After(cutoff) {
			continue
		}
		if onlyIfSeen && !task.Seen {
			continue
		}
		delete(r.tasks, id)
		deleted++
	}
	return deleted, nil
}

func (r *MemoryTaskRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := int64(len(r.tasks))
	r.tasks = make(map[uint]*domain.Task)
	return deleted, nil
}
