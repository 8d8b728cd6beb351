package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskstate/tasksync/internal/config"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/db"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "tasksync", rootCmd.Use)

	cmdMap := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, expected := range []string{"watch", "clear-tasks"} {
		assert.True(t, cmdMap[expected], "expected subcommand %q", expected)
	}
}

func pageServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWatchWithoutChannelsLeavesPageAsInitialized(t *testing.T) {
	srv := pageServer(t, `<div class="task-status" data-pk="3" data-status="running"><span class="task-status-text">running</span></div>`)
	output := filepath.Join(t.TempDir(), "page.html")

	var out bytes.Buffer
	err := watch(context.Background(), config.SyncConfig{
		PageURL:          srv.URL + "/tasks",
		FetchTimeout:     5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		Output:           output,
	}, logger.NewNop(), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Tracking 1 task(s)")
	assert.Contains(t, out.String(), "1 task(s) still in progress")

	html, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(html), `class="task-status active"`)
}

func TestWatchNothingToTrack(t *testing.T) {
	srv := pageServer(t, `<div class="task-status" data-pk="3" data-status="done"></div>`)

	var out bytes.Buffer
	err := watch(context.Background(), config.SyncConfig{PageURL: srv.URL + "/tasks"}, logger.NewNop(), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Tracking 0 task(s)")
}

func TestWatchRejectsIndicatorWithoutID(t *testing.T) {
	srv := pageServer(t, `<div class="task-status" data-status="running"></div>`)

	var out bytes.Buffer
	err := watch(context.Background(), config.SyncConfig{PageURL: srv.URL + "/tasks"}, logger.NewNop(), &out)
	assert.Error(t, err)
}

func TestClearTasks(t *testing.T) {
	ctx := context.Background()
	repo := db.NewMemoryTaskRepository(nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateOrUpdate(ctx, &domain.Task{MessageID: uuid.New(), Status: domain.TaskStatusDone}))
	}

	var out bytes.Buffer
	require.NoError(t, clearTasks(ctx, repo, false, strings.NewReader("n\n"), &out))
	assert.Contains(t, out.String(), "Nothing deleted.")

	out.Reset()
	require.NoError(t, clearTasks(ctx, repo, false, strings.NewReader("YES\n"), &out))
	assert.Contains(t, out.String(), "Deleted 3 task(s).")

	out.Reset()
	require.NoError(t, clearTasks(ctx, repo, true, strings.NewReader(""), &out))
	assert.Equal(t, "Deleted 0 task(s).\n", out.String())
}
