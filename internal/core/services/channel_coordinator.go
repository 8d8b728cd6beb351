package services

import (
	"context"

	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

const (
	StatusChannelPath = "/ws/get-task-status/"
	SeenChannelPath   = "/ws/set-task-seen/"
)

// BatchResult summarizes one applied status message.
type BatchResult struct {
	Applied   int
	Skipped   int
	Completed []domain.TaskID
	Reentered []domain.TaskID
}

type ChannelCoordinatorConfig struct {
	Registry *TaskRegistry
	Dialer   ports.ChannelDialer
	Logger   *logger.Logger
	// OnBatch, if set, runs on the loop goroutine after every status message.
	OnBatch func(BatchResult)
}

// ChannelCoordinator owns the status and seen channels and applies status
// batches to the registry. All registry and document access happens on the
// goroutine running Run.
type ChannelCoordinator struct {
	registry *TaskRegistry
	dialer   ports.ChannelDialer
	logger   *logger.Logger
	onBatch  func(BatchResult)

	status ports.Channel
	seen   ports.Channel
}

func NewChannelCoordinator(cfg ChannelCoordinatorConfig) *ChannelCoordinator {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &ChannelCoordinator{
		registry: cfg.Registry,
		dialer:   cfg.Dialer,
		logger:   log,
		onBatch:  cfg.OnBatch,
	}
}

type frame struct {
	data []byte
	err  error
}

// Run opens both channels and processes status messages until ctx is done
// or the status channel closes. An empty tracked set or a failed dial ends
// the run quietly with a nil error, unless ctx was cancelled meanwhile.
func (c *ChannelCoordinator) Run(ctx context.Context) error {
	tracked := c.registry.Tracked()
	if tracked.Len() == 0 {
		c.logger.Debugw("coordinator_nothing_to_track")
		return nil
	}

	status, err := c.dialer.Dial(ctx, StatusChannelPath)
	if err != nil {
		c.logger.Debugw("coordinator_status_channel_unavailable", "error", err)
		return ctx.Err()
	}
	seen, err := c.dialer.Dial(ctx, SeenChannelPath)
	if err != nil {
		c.logger.Debugw("coordinator_seen_channel_unavailable", "error", err)
		_ = status.Close()
		return ctx.Err()
	}
	c.status, c.seen = status, seen
	defer c.close()

	c.logger.Infow("coordinator_channels_open", "tracked", tracked.Len())
	c.send(c.status, "status")
	c.send(c.seen, "seen")

	frames := make(chan frame)
	go c.readLoop(ctx, c.status, frames)
	go c.drain(c.seen)

	for {
		select {
		case <-ctx.Done():
			c.logger.Infow("coordinator_stopped", "reason", ctx.Err())
			return ctx.Err()
		case f := <-frames:
			if f.err != nil {
				c.logger.Infow("coordinator_status_channel_closed", "error", f.err)
				return nil
			}
			c.HandleStatusMessage(f.data)
		}
	}
}

// HandleStatusMessage applies one status batch. Malformed frames and entries
// are logged and skipped. When the batch completed any task the current
// tracked set goes out on the seen channel; when it re-activated any task the
// set is re-sent on the status channel to resubscribe.
func (c *ChannelCoordinator) HandleStatusMessage(data []byte) BatchResult {
	var result BatchResult

	updates, skipped, err := domain.DecodeStatusMessage(data)
	if err != nil {
		c.logger.Warnw("coordinator_status_message_malformed", "error", err)
		result.Skipped = 1
		c.notify(result)
		return result
	}
	for _, e := range skipped {
		c.logger.Warnw("coordinator_status_entry_skipped", "error", e)
	}
	result.Skipped = len(skipped)

	for _, u := range updates {
		res, err := c.registry.ApplyUpdate(u.PK, u.Status, u.Progress)
		if err != nil {
			c.logger.Warnw("coordinator_status_entry_skipped", "pk", u.PK, "error", err)
			result.Skipped++
			continue
		}
		result.Applied++
		if res.Completed {
			result.Completed = append(result.Completed, u.PK)
		}
		if res.Reentered {
			result.Reentered = append(result.Reentered, u.PK)
		}
	}

	if len(result.Completed) > 0 {
		c.send(c.seen, "seen")
	}
	if len(result.Reentered) > 0 {
		c.send(c.status, "status")
	}

	c.notify(result)
	return result
}

// send writes the tracked set; failures are logged and dropped.
func (c *ChannelCoordinator) send(ch ports.Channel, name string) {
	if ch == nil {
		return
	}
	payload := c.registry.Tracked().Payload()
	if err := ch.SendJSON(payload); err != nil {
		c.logger.Warnw("coordinator_send_failed", "channel", name, "error", err)
		return
	}
	c.logger.Debugw("coordinator_sent_pk_list", "channel", name, "count", len(payload.PKList))
}

func (c *ChannelCoordinator) readLoop(ctx context.Context, ch ports.Channel, out chan<- frame) {
	for {
		data, err := ch.Receive()
		select {
		case out <- frame{data: data, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// drain consumes the seen channel so control frames are processed.
func (c *ChannelCoordinator) drain(ch ports.Channel) {
	for {
		if _, err := ch.Receive(); err != nil {
			c.logger.Debugw("coordinator_seen_channel_closed", "error", err)
			return
		}
	}
}

func (c *ChannelCoordinator) notify(result BatchResult) {
	if c.onBatch != nil {
		c.onBatch(result)
	}
}

func (c *ChannelCoordinator) close() {
	if err := c.status.Close(); err != nil {
		c.logger.Debugw("coordinator_close_failed", "channel", "status", "error", err)
	}
	if err := c.seen.Close(); err != nil {
		c.logger.Debugw("coordinator_close_failed", "channel", "seen", "error", err)
	}
}
