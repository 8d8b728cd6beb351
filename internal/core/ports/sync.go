package ports

import (
	"context"

	"github.com/taskstate/tasksync/internal/domain"
)

// TaskIndicator is a live handle on one task widget in a page document.
// The sync core reads and patches it but does not own it.
type TaskIndicator interface {
	// TaskID returns the identifier attribute and whether it was present.
	TaskID() (domain.TaskID, bool)
	Status() domain.TaskStatus
	// SetStatus updates both the status attribute and the visible label.
	SetStatus(status domain.TaskStatus)
	SetActive(active bool)
	IsActive() bool
	// SetProgress shows percent in the progress display, if the widget has one.
	SetProgress(percent int)
}

// Channel is one established push connection.
type Channel interface {
	SendJSON(v any) error
	// Receive blocks until the next frame arrives or the channel closes.
	Receive() ([]byte, error)
	Close() error
}

// ChannelDialer opens push channels relative to the page origin.
type ChannelDialer interface {
	Dial(ctx context.Context, path string) (Channel, error)
}
