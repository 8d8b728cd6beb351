package services

import (
	"context"
	"sync"
	"time"

	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

// Subscriber is one connected status-channel client.
type Subscriber interface {
	ID() string
	SendJSON(v any) error
}

type subscription struct {
	sub Subscriber
	ids []uint
}

func (s *subscription) watches(id uint) bool {
	return containsID(s.ids, id)
}

// StatusHub fans task changes out to status subscribers and records which
// completed tasks have been acknowledged over the seen channel.
type StatusHub struct {
	repo   ports.TaskRepository
	logger *logger.Logger
	now    func() time.Time

	mu   sync.RWMutex
	subs map[string]*subscription
	seen map[string][]uint
}

var _ ports.TaskPublisher = (*StatusHub)(nil)

func NewStatusHub(repo ports.TaskRepository, log *logger.Logger) *StatusHub {
	if log == nil {
		log = logger.NewNop()
	}
	return &StatusHub{
		repo:   repo,
		logger: log,
		now:    time.Now,
		subs:   make(map[string]*subscription),
		seen:   make(map[string][]uint),
	}
}

func (h *StatusHub) Register(sub Subscriber) {
	h.mu.Lock()
	h.subs[sub.ID()] = &subscription{sub: sub}
	h.mu.Unlock()
	h.logger.Debugw("hub_subscriber_registered", "subscriber", sub.ID())
}

func (h *StatusHub) Unregister(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
	h.logger.Debugw("hub_subscriber_unregistered", "subscriber", id)
}

// Subscribers returns the number of registered status subscribers.
func (h *StatusHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Subscribe replaces the watch list of a registered subscriber and replies
// with the current status of every known task in it. Completed tasks in the
// list are marked seen, since the client renders them on receipt.
func (h *StatusHub) Subscribe(ctx context.Context, subscriberID string, pkList []domain.TaskID) error {
	ids := h.parseIDs(pkList)

	h.mu.Lock()
	sub, ok := h.subs[subscriberID]
	if ok {
		sub.ids = ids
	}
	h.mu.Unlock()
	if !ok {
		return ErrSubscriberNotFound
	}

	tasks, err := h.repo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	var completed []uint
	for _, task := range tasks {
		if task.IsComplete() {
			completed = append(completed, task.ID)
		}
	}
	if len(completed) > 0 {
		if _, err := h.repo.MarkSeen(ctx, completed, h.now()); err != nil {
			h.logger.Warnw("hub_mark_seen_failed", "subscriber", subscriberID, "error", err)
		}
	}

	h.logger.Infow("hub_subscribed", "subscriber", subscriberID, "watching", len(ids), "known", len(tasks))
	return sub.sub.SendJSON(statusMessage(tasks))
}

// Publish sends the full watch list state to every subscriber watching task.
func (h *StatusHub) Publish(ctx context.Context, task *domain.Task) {
	h.mu.RLock()
	var targets []*subscription
	for _, sub := range h.subs {
		if sub.watches(task.ID) {
			targets = append(targets, &subscription{sub: sub.sub, ids: append([]uint(nil), sub.ids...)})
		}
	}
	h.mu.RUnlock()

	for _, target := range targets {
		tasks, err := h.repo.GetByIDs(ctx, target.ids)
		if err != nil {
			h.logger.Errorw("hub_publish_lookup_failed", "subscriber", target.sub.ID(), "error", err)
			continue
		}
		if err := target.sub.SendJSON(statusMessage(tasks)); err != nil {
			h.logger.Warnw("hub_publish_send_failed", "subscriber", target.sub.ID(), "error", err)
			continue
		}
	}
	h.logger.Debugw("hub_published", "task_id", task.ID, "status", task.Status, "subscribers", len(targets))
}

// AcknowledgeSeen handles one seen-channel payload from connID. The client
// stops tracking a task once it has displayed its final state, so ids that
// dropped out since the previous payload are marked seen together with any
// completed ids still listed.
func (h *StatusHub) AcknowledgeSeen(ctx context.Context, connID string, pkList []domain.TaskID) (int64, error) {
	current := h.parseIDs(pkList)

	h.mu.Lock()
	previous := h.seen[connID]
	h.seen[connID] = current
	h.mu.Unlock()

	candidates := append([]uint(nil), current...)
	for _, id := range previous {
		if !containsID(current, id) {
			candidates = append(candidates, id)
		}
	}

	n, err := h.repo.MarkSeen(ctx, candidates, h.now())
	if err != nil {
		return 0, err
	}
	h.logger.Infow("hub_seen_acknowledged", "connection", connID, "listed", len(current), "marked", n)
	return n, nil
}

// ForgetSeen drops the remembered seen list of a closed connection.
func (h *StatusHub) ForgetSeen(connID string) {
	h.mu.Lock()
	delete(h.seen, connID)
	h.mu.Unlock()
}

func (h *StatusHub) parseIDs(pkList []domain.TaskID) []uint {
	ids := make([]uint, 0, len(pkList))
	for _, pk := range pkList {
		id, err := pk.Uint()
		if err != nil {
			h.logger.Warnw("hub_invalid_task_id", "pk", pk.String(), "error", err)
			continue
		}
		if !containsID(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func statusMessage(tasks []domain.Task) domain.StatusUpdateMessage {
	msg := domain.StatusUpdateMessage{Tasks: make([]domain.StatusUpdate, 0, len(tasks))}
	for i := range tasks {
		msg.Tasks = append(msg.Tasks, tasks[i].StatusUpdate())
	}
	return msg
}
