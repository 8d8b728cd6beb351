package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/db"
)

type fakeSubscriber struct {
	id string

	mu       sync.Mutex
	messages []domain.StatusUpdateMessage
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var msg domain.StatusUpdateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeSubscriber) last(t *testing.T) domain.StatusUpdateMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

func (f *fakeSubscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func seedTask(t *testing.T, repo *db.MemoryTaskRepository, status domain.TaskStatus) *domain.Task {
	t.Helper()
	task := &domain.Task{MessageID: uuid.New(), Status: status}
	require.NoError(t, repo.CreateOrUpdate(context.Background(), task))
	return task
}

func TestHubSubscribeRepliesWithCurrentState(t *testing.T) {
	repo := db.NewMemoryTaskRepository(nil)
	hub := NewStatusHub(repo, nil)
	ctx := context.Background()

	running := seedTask(t, repo, domain.TaskStatusRunning)
	done := seedTask(t, repo, domain.TaskStatusDone)

	sub := &fakeSubscriber{id: "a"}
	hub.Register(sub)
	require.NoError(t, hub.Subscribe(ctx, "a", []domain.TaskID{running.PK(), done.PK(), "999", "bogus"}))

	msg := sub.last(t)
	require.Len(t, msg.Tasks, 2)
	assert.Equal(t, running.PK(), msg.Tasks[0].PK)
	assert.Equal(t, domain.TaskStatusRunning, msg.Tasks[0].Status)
	assert.Equal(t, domain.TaskStatusDone, msg.Tasks[1].Status)

	got, err := repo.GetByID(ctx, done.ID)
	require.NoError(t, err)
	assert.True(t, got.Seen, "completed tasks are seen once delivered")

	got, err = repo.GetByID(ctx, running.ID)
	require.NoError(t, err)
	assert.False(t, got.Seen)
}

func TestHubSubscribeUnknownSubscriber(t *testing.T) {
	hub := NewStatusHub(db.NewMemoryTaskRepository(nil), nil)
	err := hub.Subscribe(context.Background(), "ghost", ids("1"))
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestHubPublishOnlyReachesWatchers(t *testing.T) {
	repo := db.NewMemoryTaskRepository(nil)
	hub := NewStatusHub(repo, nil)
	ctx := context.Background()

	first := seedTask(t, repo, domain.TaskStatusEnqueued)
	second := seedTask(t, repo, domain.TaskStatusEnqueued)

	watcher := &fakeSubscriber{id: "watcher"}
	other := &fakeSubscriber{id: "other"}
	hub.Register(watcher)
	hub.Register(other)
	require.NoError(t, hub.Subscribe(ctx, "watcher", []domain.TaskID{first.PK(), second.PK()}))
	require.NoError(t, hub.Subscribe(ctx, "other", []domain.TaskID{second.PK()}))
	assert.Equal(t, 2, hub.Subscribers())

	update := &domain.Task{MessageID: first.MessageID, Status: domain.TaskStatusRunning}
	require.NoError(t, repo.CreateOrUpdate(ctx, update))
	update, err := repo.UpdateProgress(ctx, update.ID, 40)
	require.NoError(t, err)
	hub.Publish(ctx, update)

	assert.Equal(t, 2, watcher.count())
	assert.Equal(t, 1, other.count())

	msg := watcher.last(t)
	require.Len(t, msg.Tasks, 2)
	assert.Equal(t, domain.TaskStatusRunning, msg.Tasks[0].Status)
	assert.Equal(t, domain.NewProgress(40), msg.Tasks[0].Progress)
	assert.False(t, msg.Tasks[1].Progress.Valid)

	hub.Unregister("watcher")
	hub.Publish(ctx, update)
	assert.Equal(t, 2, watcher.count())
	assert.Equal(t, 1, hub.Subscribers())
}

func TestHubAcknowledgeSeenMarksDroppedIDs(t *testing.T) {
	repo := db.NewMemoryTaskRepository(nil)
	hub := NewStatusHub(repo, nil)
	ctx := context.Background()

	first := seedTask(t, repo, domain.TaskStatusRunning)
	second := seedTask(t, repo, domain.TaskStatusRunning)

	n, err := hub.AcknowledgeSeen(ctx, "conn", []domain.TaskID{first.PK(), second.PK()})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// first finishes and the client stops tracking it
	require.NoError(t, repo.CreateOrUpdate(ctx, &domain.Task{MessageID: first.MessageID, Status: domain.TaskStatusDone}))

	n, err = hub.AcknowledgeSeen(ctx, "conn", []domain.TaskID{second.PK()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.Seen)

	hub.ForgetSeen("conn")
	n, err = hub.AcknowledgeSeen(ctx, "conn", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
