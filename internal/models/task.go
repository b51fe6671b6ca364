package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusAccepted  TaskStatus = "accepted"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) String() string {
	return string(s)
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusAccepted, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

type TaskMode string

const (
	// TaskModeSingle has one acceptor who completes the task and takes the reward.
	TaskModeSingle TaskMode = "single"
	// TaskModeContest lets several acceptors submit evidence; the poster picks a winner.
	TaskModeContest TaskMode = "contest"
)

func (m TaskMode) Valid() bool {
	return m == TaskModeSingle || m == TaskModeContest
}

var (
	ErrTaskNotOpen          = errors.New("task is not open")
	ErrTaskNotAccepted      = errors.New("task is not accepted")
	ErrTaskWrongMode        = errors.New("operation not available for this task mode")
	ErrTaskPosterCannotJoin = errors.New("poster cannot accept own task")
	ErrTaskAlreadyJoined    = errors.New("already accepted this task")
	ErrTaskNotAcceptor      = errors.New("only an acceptor can do this")
	ErrTaskNotPoster        = errors.New("only the poster can do this")
	ErrTaskWinnerNotEntrant = errors.New("winner has not submitted")
)

type Task struct {
	bun.BaseModel `bun:"table:task"`
	ID            string     `bun:"id,pk" json:"id"`
	PosterID      string     `bun:"poster_id" json:"poster_id"`
	Title         string     `bun:"title" json:"title"`
	Description   string     `bun:"description" json:"description"`
	Reward        int64      `bun:"reward" json:"reward"`
	Currency      Currency   `bun:"currency" json:"currency"`
	Mode          TaskMode   `bun:"mode" json:"mode"`
	Status        TaskStatus `bun:"status" json:"status"`
	AcceptorIDs   []string   `bun:"acceptor_ids,array" json:"acceptor_ids"`
	WinnerID      *string    `bun:"winner_id" json:"winner_id"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,default:current_timestamp" json:"updated_at"`
	AcceptedAt    *time.Time `bun:"accepted_at" json:"accepted_at"`
	CompletedAt   *time.Time `bun:"completed_at" json:"completed_at"`

	Submissions []*TaskSubmission `bun:"-" json:"submissions,omitempty"`
}

func (t *Task) HasAcceptor(userID string) bool {
	for _, id := range t.AcceptorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Accept records userID as an acceptor. Single tasks move open -> accepted once;
// contest tasks keep collecting acceptors until a winner is chosen.
func (t *Task) Accept(userID string, now time.Time) error {
	if userID == t.PosterID {
		return ErrTaskPosterCannotJoin
	}

	switch t.Mode {
	case TaskModeSingle:
		if t.Status != TaskStatusOpen {
			return ErrTaskNotOpen
		}
	case TaskModeContest:
		if t.Status != TaskStatusOpen && t.Status != TaskStatusAccepted {
			return ErrTaskNotOpen
		}
		if t.HasAcceptor(userID) {
			return ErrTaskAlreadyJoined
		}
	default:
		return ErrTaskWrongMode
	}

	t.AcceptorIDs = append(t.AcceptorIDs, userID)
	if t.Status == TaskStatusOpen {
		t.AcceptedAt = &now
	}
	t.Status = TaskStatusAccepted
	t.UpdatedAt = now
	return nil
}

// Complete settles a single task for its acceptor.
func (t *Task) Complete(userID string, now time.Time) error {
	if t.Mode != TaskModeSingle {
		return ErrTaskWrongMode
	}
	if t.Status != TaskStatusAccepted {
		return ErrTaskNotAccepted
	}
	if !t.HasAcceptor(userID) {
		return ErrTaskNotAcceptor
	}

	winner := userID
	t.WinnerID = &winner
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// Cancel is only possible while nobody has accepted the task.
func (t *Task) Cancel(userID string, asAdmin bool, now time.Time) error {
	if t.Status != TaskStatusOpen {
		return ErrTaskNotOpen
	}
	if userID != t.PosterID && !asAdmin {
		return ErrTaskNotPoster
	}

	t.Status = TaskStatusCancelled
	t.UpdatedAt = now
	return nil
}

func (t *Task) CanSubmit(userID string) error {
	if t.Mode != TaskModeContest {
		return ErrTaskWrongMode
	}
	if t.Status != TaskStatusAccepted {
		return ErrTaskNotAccepted
	}
	if !t.HasAcceptor(userID) {
		return ErrTaskNotAcceptor
	}
	return nil
}

// SelectWinner settles a contest task. submitted lists the users who handed in evidence.
func (t *Task) SelectWinner(posterID string, winnerID string, submitted []string, now time.Time) error {
	if t.Mode != TaskModeContest {
		return ErrTaskWrongMode
	}
	if t.Status != TaskStatusAccepted {
		return ErrTaskNotAccepted
	}
	if posterID != t.PosterID {
		return ErrTaskNotPoster
	}

	found := false
	for _, id := range submitted {
		if id == winnerID {
			found = true
			break
		}
	}
	if !found || !t.HasAcceptor(winnerID) {
		return ErrTaskWinnerNotEntrant
	}

	t.WinnerID = &winnerID
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

type TaskSubmission struct {
	bun.BaseModel `bun:"table:task_submission"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	TaskID        string    `bun:"task_id" json:"task_id"`
	UserID        string    `bun:"user_id" json:"user_id"`
	Evidence      string    `bun:"evidence" json:"evidence"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

func TaskEscrowAction(taskID string) string {
	return "task:escrow:" + taskID
}

func TaskRewardAction(taskID string) string {
	return "task:reward:" + taskID
}

func TaskRefundAction(taskID string) string {
	return actionPrefixTaskRefund + taskID
}
