package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hamsterhub/internal/datastore"
	"hamsterhub/internal/interfaces"
	"hamsterhub/internal/models"

	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var ErrInvalidTask = errors.New("title is required and reward must be positive")

func wrapTaskError(err error) error {
	switch {
	case errors.Is(err, models.ErrTaskNotPoster), errors.Is(err, models.ErrTaskNotAcceptor):
		return errorx.Wrap(err, errorx.Authz)
	case errors.Is(err, models.ErrTaskNotOpen),
		errors.Is(err, models.ErrTaskNotAccepted),
		errors.Is(err, models.ErrTaskWrongMode),
		errors.Is(err, models.ErrTaskPosterCannotJoin),
		errors.Is(err, models.ErrTaskAlreadyJoined),
		errors.Is(err, models.ErrTaskWinnerNotEntrant):
		return errorx.Wrap(err, errorx.Invalid)
	}
	return wrapLedgerError(err)
}

type CreateTaskInput struct {
	Title       string          `json:"title" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=4000"`
	Reward      int64           `json:"reward" validate:"gt=0"`
	Currency    models.Currency `json:"currency" validate:"required"`
	Mode        models.TaskMode `json:"mode"`
}

type ServiceTask struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	rs                 *redsync.Redsync

	serviceCurrency *ServiceCurrency
	notifier        interfaces.Notifier
}

func NewServiceTask(container *do.Injector) (*ServiceTask, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	serviceCurrency, err := do.Invoke[*ServiceCurrency](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	return &ServiceTask{container, postgresDB, readonlyPostgresDB, rs, serviceCurrency, bot}, nil
}

func (service *ServiceTask) notify(userID string, content string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := service.notifier.SendDirectMessage(ctx, userID, content); err != nil {
			zap.S().Debugw("task notification", "user", userID, "err", err)
		}
	}()
}

// Create escrows the reward from the poster and opens the task.
func (service *ServiceTask) Create(ctx context.Context, poster *models.User, input *CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || input.Reward <= 0 {
		return nil, errorx.Wrap(ErrInvalidTask, errorx.Validation)
	}
	if !input.Currency.Valid() {
		return nil, errorx.Wrap(models.ErrUnknownCurrency, errorx.Validation)
	}

	mode := input.Mode
	if mode == "" {
		mode = models.TaskModeSingle
	}
	if !mode.Valid() {
		return nil, errorx.Wrap(models.ErrTaskWrongMode, errorx.Validation)
	}

	mutex := service.rs.NewMutex(LockKeyUserWallet(poster.ID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrUserLock, errorx.Invalid)
	}
	//nolint:errcheck
	defer mutex.Unlock()

	now := time.Now()
	task := &models.Task{
		ID:          uuid.NewString(),
		PosterID:    poster.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Reward:      input.Reward,
		Currency:    input.Currency,
		Mode:        mode,
		Status:      models.TaskStatusOpen,
		AcceptorIDs: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := applyMovement(ctx, tx, poster.ID, task.Currency, -task.Reward, models.TaskEscrowAction(task.ID)); err != nil {
			return err
		}
		return datastore.InsertTask(ctx, tx, task)
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}

	return task, nil
}

func (service *ServiceTask) Get(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := datastore.GetTask(ctx, service.readonlyPostgresDB, taskID)
	if err != nil {
		return nil, err
	}

	if task.Mode == models.TaskModeContest {
		task.Submissions, err = datastore.GetTaskSubmissions(ctx, service.readonlyPostgresDB, taskID)
		if err != nil {
			return nil, err
		}
	}
	return task, nil
}

func (service *ServiceTask) List(ctx context.Context, filter datastore.TaskFilter, page, limit int) (*models.Page[*models.Task], error) {
	tasks, total, err := datastore.ListTasks(ctx, service.readonlyPostgresDB, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &models.Page[*models.Task]{Items: tasks, Page: page, Limit: limit, Total: total}, nil
}

// transition runs fn against the locked task row; the status write and any ledger rows commit together.
func (service *ServiceTask) transition(ctx context.Context, taskID string, fn func(ctx context.Context, tx bun.Tx, task *models.Task) ([]*Movement, error)) (*models.Task, error) {
	mutex := service.rs.NewMutex(LockKeyTask(taskID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrTaskLock, errorx.Invalid)
	}
	//nolint:errcheck
	defer mutex.Unlock()

	var task *models.Task
	var movements []*Movement
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		task, err = datastore.GetTaskForUpdate(ctx, tx, taskID)
		if err != nil {
			return err
		}

		movements, err = fn(ctx, tx, task)
		return err
	})
	if err != nil {
		return nil, wrapTaskError(err)
	}

	service.serviceCurrency.AfterCommit(ctx, movements...)
	return task, nil
}

func (service *ServiceTask) Accept(ctx context.Context, taskID string, user *models.User) (*models.Task, error) {
	task, err := service.transition(ctx, taskID, func(ctx context.Context, tx bun.Tx, task *models.Task) ([]*Movement, error) {
		if err := task.Accept(user.ID, time.Now()); err != nil {
			return nil, err
		}
		return nil, datastore.UpdateTaskState(ctx, tx, task)
	})
	if err != nil {
		return nil, err
	}

	service.notify(task.PosterID, fmt.Sprintf("🐹 %s accepted your task **%s**.", user.DisplayName(), task.Title))
	return task, nil
}

// Complete pays the escrowed reward to the acceptor of a single task.
func (service *ServiceTask) Complete(ctx context.Context, taskID string, user *models.User) (*models.Task, error) {
	task, err := service.transition(ctx, taskID, func(ctx context.Context, tx bun.Tx, task *models.Task) ([]*Movement, error) {
		if err := task.Complete(user.ID, time.Now()); err != nil {
			return nil, err
		}

		movement, err := applyMovement(ctx, tx, user.ID, task.Currency, task.Reward, models.TaskRewardAction(task.ID))
		if err != nil {
			return nil, err
		}
		return []*Movement{movement}, datastore.UpdateTaskState(ctx, tx, task)
	})
	if err != nil {
		return nil, err
	}

	service.notify(task.PosterID, fmt.Sprintf("✅ %s completed your task **%s**.", user.DisplayName(), task.Title))
	service.notify(user.ID, fmt.Sprintf("💰 You earned %d %s for **%s**.", task.Reward, task.Currency, task.Title))
	return task, nil
}

// Cancel refunds the escrow to the poster and removes the task.
func (service *ServiceTask) Cancel(ctx context.Context, taskID string, user *models.User, asAdmin bool) (*models.Task, error) {
	task, err := service.transition(ctx, taskID, func(ctx context.Context, tx bun.Tx, task *models.Task) ([]*Movement, error) {
		if err := task.Cancel(user.ID, asAdmin, time.Now()); err != nil {
			return nil, err
		}

		movement, err := applyMovement(ctx, tx, task.PosterID, task.Currency, task.Reward, models.TaskRefundAction(task.ID))
		if err != nil {
			return nil, err
		}
		return []*Movement{movement}, datastore.DeleteTask(ctx, tx, task.ID)
	})
	if err != nil {
		return nil, err
	}

	if task.PosterID != user.ID {
		service.notify(task.PosterID, fmt.Sprintf("Your task **%s** was cancelled by an admin. %d %s were refunded.", task.Title, task.Reward, task.Currency))
	}
	return task, nil
}

func (service *ServiceTask) Submit(ctx context.Context, taskID string, user *models.User, evidence string) (*models.TaskSubmission, error) {
	evidence = strings.TrimSpace(evidence)
	if evidence == "" {
		return nil, errorx.Wrap(errors.New("evidence is required"), errorx.Validation)
	}

	submission := &models.TaskSubmission{
		TaskID:    taskID,
		UserID:    user.ID,
		Evidence:  evidence,
		CreatedAt: time.Now(),
	}

	task, err := service.transition(ctx, taskID, func(ctx context.Context, tx bun.Tx, task *models.Task) ([]*Movement, error) {
		if err := task.CanSubmit(user.ID); err != nil {
			return nil, err
		}
		return nil, datastore.UpsertTaskSubmission(ctx, tx, submission)
	})
	if err != nil {
		return nil, err
	}

	service.notify(task.PosterID, fmt.Sprintf("📨 %s submitted an entry for **%s**.", user.DisplayName(), task.Title))
	return submission, nil
}

// SelectWinner pays the contest reward to winnerID and deletes the settled task.
func (service *ServiceTask) SelectWinner(ctx context.Context, taskID string, poster *models.User, winnerID string) (*models.Task, error) {
	task, err := service.transition(ctx, taskID, func(ctx context.Context, tx bun.Tx, task *models.Task) ([]*Movement, error) {
		submissions, err := datastore.GetTaskSubmissions(ctx, tx, task.ID)
		if err != nil {
			return nil, err
		}

		submitted := make([]string, 0, len(submissions))
		for _, s := range submissions {
			submitted = append(submitted, s.UserID)
		}

		if err := task.SelectWinner(poster.ID, winnerID, submitted, time.Now()); err != nil {
			return nil, err
		}

		movement, err := applyMovement(ctx, tx, winnerID, task.Currency, task.Reward, models.TaskRewardAction(task.ID))
		if err != nil {
			return nil, err
		}
		return []*Movement{movement}, datastore.DeleteTask(ctx, tx, task.ID)
	})
	if err != nil {
		return nil, err
	}

	service.notify(winnerID, fmt.Sprintf("🏆 You won **%s** and earned %d %s!", task.Title, task.Reward, task.Currency))
	return task, nil
}
