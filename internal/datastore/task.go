package datastore

import (
	"context"

	"hamsterhub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableTask(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Task)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Task)(nil)).Index("index_task_status_created_at").IfNotExists().Column("status", "created_at").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Task)(nil)).Index("index_task_poster_id").IfNotExists().Column("poster_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableTaskSubmission(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.TaskSubmission)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.TaskSubmission)(nil)).Index("index_task_submission_task_id_user_id").IfNotExists().Unique().Column("task_id", "user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertTask(ctx context.Context, db bun.IDB, task *models.Task) error {
	_, err := db.NewInsert().Model(task).Exec(ctx)
	return err
}

func GetTask(ctx context.Context, db bun.IDB, id string) (*models.Task, error) {
	var task models.Task
	err := db.NewSelect().Model(&task).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTaskForUpdate must run inside a transaction.
func GetTaskForUpdate(ctx context.Context, db bun.IDB, id string) (*models.Task, error) {
	var task models.Task
	err := db.NewSelect().Model(&task).Where("id = ?", id).For("UPDATE").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

type TaskFilter struct {
	Status     *models.TaskStatus
	PosterID   string
	AcceptorID string
}

func ListTasks(ctx context.Context, db bun.IDB, filter TaskFilter, limit, offset int) ([]*models.Task, int, error) {
	var tasks []*models.Task
	q := db.NewSelect().Model(&tasks)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.PosterID != "" {
		q = q.Where("poster_id = ?", filter.PosterID)
	}
	if filter.AcceptorID != "" {
		q = q.Where("? = ANY(acceptor_ids)", filter.AcceptorID)
	}

	count, err := q.Order("created_at DESC").Limit(limit).Offset(offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return tasks, count, nil
}

func UpdateTaskState(ctx context.Context, db bun.IDB, task *models.Task) error {
	_, err := db.NewUpdate().
		Model(task).
		Column("status", "acceptor_ids", "winner_id", "updated_at", "accepted_at", "completed_at").
		WherePK().
		Exec(ctx)
	return err
}

// DeleteTask removes the task together with its submissions.
func DeleteTask(ctx context.Context, db bun.IDB, id string) error {
	_, err := db.NewDelete().Model((*models.TaskSubmission)(nil)).Where("task_id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewDelete().Model((*models.Task)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// UpsertTaskSubmission replaces the evidence of a previous submission by the same user.
func UpsertTaskSubmission(ctx context.Context, db bun.IDB, submission *models.TaskSubmission) error {
	_, err := db.NewInsert().
		Model(submission).
		On("CONFLICT (task_id, user_id) DO UPDATE").
		Set("evidence = EXCLUDED.evidence").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	return err
}

func GetTaskSubmissions(ctx context.Context, db bun.IDB, taskID string) ([]*models.TaskSubmission, error) {
	var submissions []*models.TaskSubmission
	err := db.NewSelect().Model(&submissions).Where("task_id = ?", taskID).Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return submissions, nil
}
