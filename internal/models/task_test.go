package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(mode TaskMode) *Task {
	return &Task{
		ID:       "t1",
		PosterID: "poster",
		Reward:   50,
		Currency: CurrencyHamsterCoin,
		Mode:     mode,
		Status:   TaskStatusOpen,
	}
}

func TestTaskSingleLifecycle(t *testing.T) {
	now := time.Now()
	task := newTask(TaskModeSingle)

	require.NoError(t, task.Accept("alice", now))
	assert.Equal(t, TaskStatusAccepted, task.Status)
	assert.Equal(t, []string{"alice"}, task.AcceptorIDs)
	require.NotNil(t, task.AcceptedAt)

	assert.ErrorIs(t, task.Accept("bob", now), ErrTaskNotOpen)
	assert.ErrorIs(t, task.Complete("bob", now), ErrTaskNotAcceptor)
	assert.ErrorIs(t, task.Cancel("poster", false, now), ErrTaskNotOpen)

	require.NoError(t, task.Complete("alice", now))
	assert.Equal(t, TaskStatusCompleted, task.Status)
	require.NotNil(t, task.WinnerID)
	assert.Equal(t, "alice", *task.WinnerID)

	assert.ErrorIs(t, task.Complete("alice", now), ErrTaskNotAccepted)
}

func TestTaskPosterCannotAccept(t *testing.T) {
	task := newTask(TaskModeSingle)
	assert.ErrorIs(t, task.Accept("poster", time.Now()), ErrTaskPosterCannotJoin)
	assert.Equal(t, TaskStatusOpen, task.Status)
}

func TestTaskCompleteRequiresAccepted(t *testing.T) {
	task := newTask(TaskModeSingle)
	assert.ErrorIs(t, task.Complete("alice", time.Now()), ErrTaskNotAccepted)
}

func TestTaskCancel(t *testing.T) {
	now := time.Now()

	task := newTask(TaskModeSingle)
	assert.ErrorIs(t, task.Cancel("alice", false, now), ErrTaskNotPoster)
	require.NoError(t, task.Cancel("poster", false, now))
	assert.Equal(t, TaskStatusCancelled, task.Status)
	assert.ErrorIs(t, task.Cancel("poster", false, now), ErrTaskNotOpen)

	byAdmin := newTask(TaskModeSingle)
	require.NoError(t, byAdmin.Cancel("admin", true, now))
}

func TestTaskContestLifecycle(t *testing.T) {
	now := time.Now()
	task := newTask(TaskModeContest)

	require.NoError(t, task.Accept("alice", now))
	require.NoError(t, task.Accept("bob", now))
	assert.ErrorIs(t, task.Accept("bob", now), ErrTaskAlreadyJoined)
	assert.Equal(t, TaskStatusAccepted, task.Status)
	assert.Len(t, task.AcceptorIDs, 2)

	assert.ErrorIs(t, task.Complete("alice", now), ErrTaskWrongMode)
	assert.NoError(t, task.CanSubmit("alice"))
	assert.ErrorIs(t, task.CanSubmit("carol"), ErrTaskNotAcceptor)

	submitted := []string{"alice"}
	assert.ErrorIs(t, task.SelectWinner("alice", "alice", submitted, now), ErrTaskNotPoster)
	assert.ErrorIs(t, task.SelectWinner("poster", "bob", submitted, now), ErrTaskWinnerNotEntrant)
	assert.ErrorIs(t, task.SelectWinner("poster", "carol", []string{"carol"}, now), ErrTaskWinnerNotEntrant)

	require.NoError(t, task.SelectWinner("poster", "alice", submitted, now))
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, "alice", *task.WinnerID)
}

func TestTaskSingleRejectsContestOperations(t *testing.T) {
	task := newTask(TaskModeSingle)
	require.NoError(t, task.Accept("alice", time.Now()))
	assert.ErrorIs(t, task.CanSubmit("alice"), ErrTaskWrongMode)
	assert.ErrorIs(t, task.SelectWinner("poster", "alice", []string{"alice"}, time.Now()), ErrTaskWrongMode)
}

func TestTaskTransitionGraph(t *testing.T) {
	// every terminal state refuses every further transition
	for _, status := range []TaskStatus{TaskStatusCompleted, TaskStatusCancelled} {
		for _, mode := range []TaskMode{TaskModeSingle, TaskModeContest} {
			task := newTask(mode)
			task.Status = status
			task.AcceptorIDs = []string{"alice"}
			now := time.Now()

			assert.Error(t, task.Accept("bob", now), "%s/%s accept", mode, status)
			assert.Error(t, task.Complete("alice", now), "%s/%s complete", mode, status)
			assert.Error(t, task.Cancel("poster", true, now), "%s/%s cancel", mode, status)
			assert.Error(t, task.SelectWinner("poster", "alice", []string{"alice"}, now), "%s/%s winner", mode, status)
		}
	}
}

func TestTaskActionKeys(t *testing.T) {
	assert.Equal(t, "task:escrow:abc", TaskEscrowAction("abc"))
	assert.Equal(t, "task:reward:abc", TaskRewardAction("abc"))
	assert.Equal(t, "task:refund:abc", TaskRefundAction("abc"))
	assert.NotEqual(t, TaskRefundAction("abc"), TaskRewardAction("abc"))
}
