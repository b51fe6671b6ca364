package datastore

import (
	"context"
	"time"

	"hamsterhub/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableVoiceActivity(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.VoiceActivity)(nil)).IfNotExists().Exec(ctx)
	return err
}

func CreateTableVoiceSession(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.VoiceSession)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.VoiceSession)(nil)).Index("index_voice_session_user_id_joined_at").IfNotExists().Column("user_id", "joined_at").Exec(ctx)
	if err != nil {
		return err
	}

	// at most one open session per user
	_, err = db.NewRaw(`create unique index if not exists index_voice_session_open_user_id on voice_session (user_id) where left_at is null`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetVoiceActivity(ctx context.Context, db bun.IDB, userID string) (*models.VoiceActivity, error) {
	var activity models.VoiceActivity
	err := db.NewSelect().Model(&activity).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func RecordVoiceJoin(ctx context.Context, db bun.IDB, userID string, joinedAt time.Time) error {
	activity := &models.VoiceActivity{
		UserID:       userID,
		JoinCount:    1,
		LastJoinedAt: &joinedAt,
		UpdatedAt:    joinedAt,
	}

	_, err := db.NewInsert().
		Model(activity).
		On("CONFLICT (user_id) DO UPDATE").
		Set("join_count = voice_activity.join_count + 1").
		Set("last_joined_at = EXCLUDED.last_joined_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func AddVoiceMinutes(ctx context.Context, db bun.IDB, userID string, minutes int64) (*models.VoiceActivity, error) {
	activity := new(models.VoiceActivity)
	_, err := db.NewUpdate().
		Model(activity).
		Set("total_minutes = total_minutes + ?", minutes).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func InsertVoiceSession(ctx context.Context, db bun.IDB, session *models.VoiceSession) error {
	_, err := db.NewInsert().Model(session).Returning("id").Exec(ctx)
	return err
}

// GetOpenVoiceSession locks the open session row when called inside a transaction.
func GetOpenVoiceSession(ctx context.Context, db bun.IDB, userID string) (*models.VoiceSession, error) {
	var session models.VoiceSession
	err := db.NewSelect().
		Model(&session).
		Where("user_id = ?", userID).
		Where("left_at IS NULL").
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func CloseVoiceSession(ctx context.Context, db bun.IDB, session *models.VoiceSession) error {
	_, err := db.NewUpdate().
		Model(session).
		Column("left_at", "minutes").
		WherePK().
		Where("left_at IS NULL").
		Exec(ctx)
	return err
}

func ListVoiceSessions(ctx context.Context, db bun.IDB, userID string, limit, offset int) ([]*models.VoiceSession, int, error) {
	var sessions []*models.VoiceSession
	count, err := db.NewSelect().
		Model(&sessions).
		Where("user_id = ?", userID).
		Order("joined_at DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return sessions, count, nil
}

func GetStaleVoiceSessions(ctx context.Context, db bun.IDB, joinedBefore time.Time, limit int) ([]*models.VoiceSession, error) {
	var sessions []*models.VoiceSession
	err := db.NewSelect().
		Model(&sessions).
		Where("left_at IS NULL").
		Where("joined_at < ?", joinedBefore).
		Order("joined_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

type VoiceMinutes struct {
	UserID  string `bun:"user_id"`
	Minutes int64  `bun:"minutes"`
}

func GetVoiceMinutesFromTime(ctx context.Context, db bun.IDB, from time.Time, limit, offset int) ([]*VoiceMinutes, error) {
	var totals []*VoiceMinutes
	err := db.NewSelect().
		ColumnExpr("user_id").
		ColumnExpr("SUM(minutes) AS minutes").
		TableExpr("voice_session").
		Where("left_at IS NOT NULL").
		Where("left_at >= ?", from).
		GroupExpr("user_id").
		OrderExpr("minutes DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx, &totals)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func GetVoiceActivities(ctx context.Context, db bun.IDB, limit, offset int) ([]*models.VoiceActivity, error) {
	var activities []*models.VoiceActivity
	err := db.NewSelect().
		Model(&activities).
		Where("total_minutes > 0").
		Order("total_minutes DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return activities, nil
}
