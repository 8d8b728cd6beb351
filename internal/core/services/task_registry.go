package services

import (
	"fmt"

	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

// UpdateResult tells the coordinator what an applied update changed.
type UpdateResult struct {
	// Completed is set when the task entered a terminal status and left the tracked set.
	Completed bool
	// Reentered is set when an untracked task became active again.
	Reentered bool
}

// TaskRegistry maps task ids to their indicators and owns the tracked set.
// It is not safe for concurrent use; the coordinator's loop is its only caller.
type TaskRegistry struct {
	indicators map[domain.TaskID]ports.TaskIndicator
	tracked    *domain.TrackedSet
	logger     *logger.Logger
}

func NewTaskRegistry(log *logger.Logger) *TaskRegistry {
	if log == nil {
		log = logger.NewNop()
	}
	return &TaskRegistry{
		indicators: make(map[domain.TaskID]ports.TaskIndicator),
		tracked:    domain.NewTrackedSet(),
		logger:     log,
	}
}

// Initialize indexes the indicators found in the page and builds the tracked
// set from their current status. An indicator without an id aborts with
// ErrMissingTaskID.
func (r *TaskRegistry) Initialize(indicators []ports.TaskIndicator) (*domain.TrackedSet, error) {
	for i, ind := range indicators {
		id, ok := ind.TaskID()
		if !ok {
			r.logger.Errorw("registry_indicator_missing_id", "index", i)
			return nil, fmt.Errorf("%w (indicator %d)", ErrMissingTaskID, i)
		}

		if _, dup := r.indicators[id]; dup {
			r.logger.Warnw("registry_duplicate_indicator", "pk", id, "index", i)
		} else {
			r.indicators[id] = ind
		}

		status := ind.Status()
		if status.IsActive() {
			ind.SetActive(true)
			r.tracked.Add(id)
		} else {
			ind.SetActive(false)
			r.tracked.Remove(id)
		}
	}

	r.logger.Infow("registry_initialized", "indicators", len(indicators), "tracked", r.tracked.Len())
	return r.tracked, nil
}

// ApplyUpdate patches the indicator for id and keeps the tracked set in line
// with the new status. Unknown ids return ErrUnknownTask and change nothing.
func (r *TaskRegistry) ApplyUpdate(id domain.TaskID, status domain.TaskStatus, progress domain.Progress) (UpdateResult, error) {
	var result UpdateResult

	ind, ok := r.indicators[id]
	if !ok {
		return result, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}

	previous := ind.Status()
	ind.SetStatus(status)

	switch {
	case status.IsTerminal():
		ind.SetActive(false)
		wasTracked := r.tracked.Remove(id)
		// repeated terminal updates are not a new completion unless the id
		// was still tracked, which a duplicate indicator can cause
		result.Completed = wasTracked || !previous.IsTerminal()
		if result.Completed {
			r.logger.Infow("registry_task_completed", "pk", id, "status", status)
		}
	case status.IsActive():
		ind.SetActive(true)
		result.Reentered = r.tracked.Add(id)
		if result.Reentered {
			r.logger.Infow("registry_task_reentered", "pk", id, "status", status, "previous", previous)
		}
	default:
		ind.SetActive(false)
		r.tracked.Remove(id)
	}

	if progress.Valid {
		ind.SetProgress(progress.Percent)
	}

	r.logger.Debugw("registry_task_updated", "pk", id, "status", status, "previous", previous, "progress", progress.Percent)
	return result, nil
}

// Tracked is the shared tracked set.
func (r *TaskRegistry) Tracked() *domain.TrackedSet {
	return r.tracked
}

func (r *TaskRegistry) IsTracked(id domain.TaskID) bool {
	return r.tracked.Contains(id)
}

// Indicator returns the indicator bound to id.
func (r *TaskRegistry) Indicator(id domain.TaskID) (ports.TaskIndicator, bool) {
	ind, ok := r.indicators[id]
	return ind, ok
}
