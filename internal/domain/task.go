package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a background task as reported by the queue.
type TaskStatus string

const (
	TaskStatusEnqueued TaskStatus = "enqueued"
	TaskStatusDelayed  TaskStatus = "delayed"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusFailed   TaskStatus = "failed"
	TaskStatusDone     TaskStatus = "done"
	TaskStatusSkipped  TaskStatus = "skipped"
)

// IsActive reports whether updates are still expected for a task in this status.
func (s TaskStatus) IsActive() bool {
	return s == TaskStatusEnqueued || s == TaskStatusRunning
}

// IsTerminal reports whether the task has finished.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusDone, TaskStatusFailed, TaskStatusSkipped:
		return true
	}
	return false
}

// IsKnown reports whether s is one of the statuses the queue emits.
func (s TaskStatus) IsKnown() bool {
	return s == TaskStatusDelayed || s.IsActive() || s.IsTerminal()
}

func (s TaskStatus) String() string {
	return string(s)
}

// TerminalStatuses lists the statuses after which a task never changes again.
var TerminalStatuses = []TaskStatus{TaskStatusDone, TaskStatusFailed, TaskStatusSkipped}

// ==================== ENTITIES ====================

// Task is the server-side record of a tracked queue message.
type Task struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	MessageID   uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"message_id"`
	Status      TaskStatus `gorm:"size:8;not null;default:'enqueued'" json:"status"`
	ActorName   string     `gorm:"size:300" json:"actor_name,omitempty"`
	QueueName   string     `gorm:"size:100" json:"queue_name,omitempty"`
	Description string     `gorm:"size:255" json:"description,omitempty"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`

	// Whether the final state has been displayed to the user.
	Seen   bool       `gorm:"not null;default:false" json:"seen"`
	SeenAt *time.Time `json:"seen_at,omitempty"`
}

func (t *Task) IsComplete() bool {
	return t.Status.IsTerminal()
}

// PK returns the identifier the page and the push channels use for this task.
func (t *Task) PK() TaskID {
	return TaskIDFromUint(t.ID)
}

// StatusUpdate renders the task the way the status channel reports it.
func (t *Task) StatusUpdate() StatusUpdate {
	update := StatusUpdate{PK: t.PK(), Status: t.Status}
	// zero progress is reported as absent
	if t.Progress != 0 {
		update.Progress = NewProgress(t.Progress)
	}
	return update
}
