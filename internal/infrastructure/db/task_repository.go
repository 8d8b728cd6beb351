package db

import (
	"context"
	"time"

	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) CreateOrUpdate(ctx context.Context, task *domain.Task) error {
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "message_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"status", "actor_name", "queue_name", "description", "updated_at",
				}),
			},
			clause.Returning{},
		).
		Create(task).Error
	if err != nil {
		r.log.Errorw("task_repo_upsert_failed", "message_id", task.MessageID, "status", task.Status, "error", err)
		return err
	}
	r.log.Infow("task_repo_upsert_ok", "id", task.ID, "message_id", task.MessageID, "status", task.Status)
	return nil
}

func (r *taskRepository) UpdateProgress(ctx context.Context, id uint, progress int) (*domain.Task, error) {
	res := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Update("progress", progress)
	if res.Error != nil {
		r.log.Errorw("task_repo_update_progress_failed", "id", id, "progress", progress, "error", res.Error)
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		r.log.Errorw("task_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) GetByIDs(ctx context.Context, ids []uint) ([]domain.Task, error) {
	var tasks []domain.Task
	if len(ids) == 0 {
		return tasks, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&tasks).Error; err != nil {
		r.log.Errorw("task_repo_get_many_failed", "count", len(ids), "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListForDisplay(ctx context.Context, seenSince time.Time) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("seen = ? OR seen_at >= ?", false, seenSince).
		Order("id").
		Find(&tasks).Error
	if err != nil {
		r.log.Errorw("task_repo_list_for_display_failed", "error", err)
		return nil, err
	}
	r.log.Debugw("task_repo_list_for_display_ok", "count", len(tasks))
	return tasks, nil
}

func (r *taskRepository) MarkSeen(ctx context.Context, ids []uint, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id IN ? AND seen = ? AND status IN ?", ids, false, domain.TerminalStatuses).
		Updates(map[string]interface{}{"seen": true, "seen_at": at})
	if res.Error != nil {
		r.log.Errorw("task_repo_mark_seen_failed", "count", len(ids), "error", res.Error)
		return 0, res.Error
	}
	r.log.Infow("task_repo_mark_seen_ok", "requested", len(ids), "updated", res.RowsAffected)
	return res.RowsAffected, nil
}

func (r *taskRepository) DeleteCompleted(ctx context.Context, cutoff time.Time, onlyIfSeen bool) (int64, error) {
	q := r.db.WithContext(ctx).
		Where("status IN ? AND created_at <= ?", domain.TerminalStatuses, cutoff)
	if onlyIfSeen {
		q = q.Where("seen = ?", true)
	}
	res := q.Delete(&domain.Task{})
	if res.Error != nil {
		r.log.Errorw("task_repo_cleanup_failed", "error", res.Error)
		return 0, res.Error
	}
	r.log.Infow("task_repo_cleanup_ok", "deleted", res.RowsAffected)
	return res.RowsAffected, nil
}

func (r *taskRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Task{})
	if res.Error != nil {
		r.log.Errorw("task_repo_delete_all_failed", "error", res.Error)
		return 0, res.Error
	}
	r.log.Infow("task_repo_delete_all_ok", "deleted", res.RowsAffected)
	return res.RowsAffected, nil
}
