package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskstate/tasksync/internal/domain"
)

const mixedPage = `<html><body>
<div class="task-status" data-pk="1" data-status="enqueued"><span class="task-status-text">enqueued</span></div>
<div class="task-status active" data-pk="2" data-status="done"><span class="task-status-text">done</span></div>
<div class="task-status" data-pk="3" data-status="running"><span class="task-status-text">running</span><span class="progress"></span></div>
<div class="task-status active" data-pk="4" data-status="delayed"><span class="task-status-text">delayed</span></div>
<div class="task-status" data-pk="5" data-status="failed"><span class="task-status-text">failed</span></div>
</body></html>`

func TestInitializeTracksActiveIndicators(t *testing.T) {
	doc := mustDocument(t, mixedPage)
	reg := NewTaskRegistry(nil)

	tracked, err := reg.Initialize(doc.Indicators())
	require.NoError(t, err)

	assert.Equal(t, ids("1", "3"), tracked.IDs())
	for _, ind := range doc.Indicators() {
		id, _ := ind.TaskID()
		assert.Equal(t, ind.Status().IsActive(), ind.IsActive(), "active flag for %s", id)
		assert.Equal(t, ind.Status().IsActive(), tracked.Contains(id), "membership for %s", id)
	}
}

func TestInitializeSingleRunningIndicator(t *testing.T) {
	doc := mustDocument(t, `<div class="task-status" data-pk="7" data-status="running"><span class="task-status-text">running</span></div>`)
	reg := NewTaskRegistry(nil)

	tracked, err := reg.Initialize(doc.Indicators())
	require.NoError(t, err)

	assert.Equal(t, ids("7"), tracked.IDs())
	assert.True(t, indicatorFor(t, doc, "7").IsActive())
}

func TestInitializeMissingIDIsFatal(t *testing.T) {
	doc := mustDocument(t, `
<div class="task-status" data-pk="1" data-status="running"></div>
<div class="task-status" data-status="running"></div>`)
	reg := NewTaskRegistry(nil)

	_, err := reg.Initialize(doc.Indicators())
	assert.ErrorIs(t, err, ErrMissingTaskID)
}

func TestInitializeEmptyPage(t *testing.T) {
	reg := NewTaskRegistry(nil)

	tracked, err := reg.Initialize(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tracked.Len())
	assert.Equal(t, []domain.TaskID{}, tracked.IDs())
}

func TestInitializeDuplicateIDLastStatusWins(t *testing.T) {
	doc := mustDocument(t, `
<div class="task-status" data-pk="1" data-status="running"></div>
<div class="task-status" data-pk="1" data-status="done"></div>`)
	reg := NewTaskRegistry(nil)

	tracked, err := reg.Initialize(doc.Indicators())
	require.NoError(t, err)
	assert.False(t, tracked.Contains("1"))

	ind, ok := reg.Indicator("1")
	require.True(t, ok)
	assert.Equal(t, domain.TaskStatusRunning, ind.Status())
}

func TestApplyUpdateDuplicateIDTrackedDespiteTerminalBinding(t *testing.T) {
	doc := mustDocument(t, `
<div class="task-status" data-pk="7" data-status="done"></div>
<div class="task-status" data-pk="7" data-status="running"></div>`)
	reg := NewTaskRegistry(nil)

	tracked, err := reg.Initialize(doc.Indicators())
	require.NoError(t, err)
	require.True(t, tracked.Contains("7"))

	res, err := reg.ApplyUpdate("7", domain.TaskStatusDone, domain.Progress{})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 0, reg.Tracked().Len())

	res, err = reg.ApplyUpdate("7", domain.TaskStatusDone, domain.Progress{})
	require.NoError(t, err)
	assert.False(t, res.Completed)
}

func TestApplyUpdateInvariant(t *testing.T) {
	statuses := []domain.TaskStatus{
		domain.TaskStatusEnqueued,
		domain.TaskStatusRunning,
		domain.TaskStatusDelayed,
		domain.TaskStatusDone,
		domain.TaskStatusFailed,
		domain.TaskStatusSkipped,
		domain.TaskStatus("paused"),
	}

	for _, from := range []string{"running", "done", "delayed"} {
		for _, to := range statuses {
			t.Run(from+"->"+to.String(), func(t *testing.T) {
				doc := mustDocument(t, `<div class="task-status" data-pk="7" data-status="`+from+`"><span class="task-status-text"></span></div>`)
				reg := NewTaskRegistry(nil)
				_, err := reg.Initialize(doc.Indicators())
				require.NoError(t, err)

				res, err := reg.ApplyUpdate("7", to, domain.Progress{})
				require.NoError(t, err)

				ind := indicatorFor(t, doc, "7")
				assert.Equal(t, to.IsActive(), reg.IsTracked("7"))
				assert.Equal(t, to.IsActive(), ind.IsActive())
				assert.Equal(t, to, ind.Status())
				assert.Equal(t, to.String(), ind.StatusText())
				assert.Equal(t, to.IsTerminal() && from != "done", res.Completed)
				assert.Equal(t, to.IsActive() && from != "running", res.Reentered)
			})
		}
	}
}

func TestApplyUpdateTerminal(t *testing.T) {
	doc := mustDocument(t, `<div class="task-status" data-pk="7" data-status="running"><span class="task-status-text">running</span></div>`)
	reg := NewTaskRegistry(nil)
	_, err := reg.Initialize(doc.Indicators())
	require.NoError(t, err)

	res, err := reg.ApplyUpdate("7", domain.TaskStatusDone, domain.Progress{})
	require.NoError(t, err)

	ind := indicatorFor(t, doc, "7")
	assert.True(t, res.Completed)
	assert.Equal(t, domain.TaskStatusDone, ind.Status())
	assert.False(t, ind.IsActive())
	assert.Equal(t, 0, reg.Tracked().Len())

	res, err = reg.ApplyUpdate("7", domain.TaskStatusDone, domain.Progress{})
	require.NoError(t, err)
	assert.False(t, res.Completed)
}

func TestApplyUpdateProgress(t *testing.T) {
	doc := mustDocument(t, `<div class="task-status" data-pk="7" data-status="running"><span class="task-status-text">running</span><span class="progress">10%</span></div>`)
	reg := NewTaskRegistry(nil)
	_, err := reg.Initialize(doc.Indicators())
	require.NoError(t, err)

	_, err = reg.ApplyUpdate("7", domain.TaskStatusRunning, domain.NewProgress(42))
	require.NoError(t, err)
	assert.Equal(t, "42%", indicatorFor(t, doc, "7").ProgressText())
	assert.Equal(t, ids("7"), reg.Tracked().IDs())

	// absent progress never clears the display
	_, err = reg.ApplyUpdate("7", domain.TaskStatusRunning, domain.Progress{})
	require.NoError(t, err)
	assert.Equal(t, "42%", indicatorFor(t, doc, "7").ProgressText())
}

func TestApplyUpdateUnknownTask(t *testing.T) {
	doc := mustDocument(t, `<div class="task-status" data-pk="7" data-status="running"></div>`)
	reg := NewTaskRegistry(nil)
	_, err := reg.Initialize(doc.Indicators())
	require.NoError(t, err)

	_, err = reg.ApplyUpdate("99", domain.TaskStatusDone, domain.Progress{})
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.Equal(t, ids("7"), reg.Tracked().IDs())
}
