package services

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hamsterhub/internal/models"
	"hamsterhub/internal/pkg/caching"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/sync/errgroup"
)

type recordingNotifier struct {
	mu         sync.Mutex
	recipients []string
}

func (n *recordingNotifier) SendDirectMessage(_ context.Context, userID string, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, userID)
	return nil
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.recipients...)
}

func newTestUserService(t *testing.T, db *bun.DB) (*ServiceUser, *recordingNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache, err := caching.NewCacheRedis(client, false)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	return &ServiceUser{
		postgresDB:         db,
		readonlyPostgresDB: db,
		cache:              cache,
		readonlyCache:      cache,
		notifier:           notifier,
	}, notifier
}

func TestFindOrCreateUserReturnsLookupError(t *testing.T) {
	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://hamster@127.0.0.1:1/hamsterhub?sslmode=disable"))), pgdialect.New())
	require.NoError(t, db.Close())

	service, notifier := newTestUserService(t, db)
	user, err := service.FindOrCreateUser(context.Background(), &models.SessionUser{ID: "1", Username: "hammy"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, user)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, notifier.sent())
}

func TestFindOrCreateUserWelcomesOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestPostgres(t)
	service, notifier := newTestUserService(t, db)
	session := &models.SessionUser{ID: uuid.NewString(), Username: "hammy"}

	var created atomic.Int32
	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			user, err := service.FindOrCreateUser(ctx, session)
			if err != nil {
				return err
			}
			if user.IsNewUser {
				created.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), created.Load())

	user, err := service.FindOrCreateUser(ctx, session)
	require.NoError(t, err)
	assert.False(t, user.IsNewUser)

	assert.Eventually(t, func() bool { return len(notifier.sent()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{session.ID}, notifier.sent())
}
