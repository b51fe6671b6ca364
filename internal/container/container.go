package container

import (
	"database/sql"
	"os"

	"hamsterhub/internal/interfaces"
	"hamsterhub/internal/pkg/caching"
	"hamsterhub/internal/pkg/limiter"
	"hamsterhub/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Optional lists the environment keys copied into "envs" when present.
var Optional = []string{
	"API_MODE",
	"API_ORIGINS",
	"ADMIN_IDS",
	"BOT_API_KEY",
	"DISCORD_BOT_TOKEN",
	"DISCORD_GUILD_ID",
	"DISCORD_ADMIN_ROLE_IDS",
	"AUDIT_WEBHOOK_URL",
}

func getenv(key string, fallbacks ...string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	for _, k := range fallbacks {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func newPostgres(dsn string, password string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithPassword(password),
	))

	return bun.NewDB(sqldb, pgdialect.New())
}

// newRedis prefers a cluster URL and falls back to a single node, then to REDIS_URL.
func newRedis(clusterKey string, urlKey string, readOnly bool) (redis.UniversalClient, error) {
	if clusterURL := os.Getenv(clusterKey); clusterURL != "" {
		clusterOpts, err := redis.ParseClusterURL(clusterURL)
		if err != nil {
			return nil, err
		}
		clusterOpts.ReadOnly = readOnly
		return redis.NewClusterClient(clusterOpts), nil
	}

	url := getenv(urlKey, "REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	return db.InitRedis(&db.RedisConfig{URL: url})
}

// New wires every service of the backend. vs must hold the required keys.
func New(vs map[string]string) *do.Injector {
	injector := do.New()
	for _, k := range Optional {
		if _, ok := vs[k]; !ok {
			vs[k] = os.Getenv(k)
		}
	}

	if vs["API_MODE"] == "" {
		vs["API_MODE"] = "production"
	}
	if vs["API_ORIGINS"] == "" {
		vs["API_ORIGINS"] = "*"
	}

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		return newPostgres(vs["DB_DSN"], os.Getenv("DB_PASSWORD")), nil
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		return newPostgres(getenv("DB_DSN_READONLY", "DB_DSN"), getenv("DB_PASSWORD_READONLY", "DB_PASSWORD")), nil
	})

	do.ProvideNamed(injector, "redis-db", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis("CLUSTER_REDIS_DB", "REDIS_DB", false)
	})

	do.ProvideNamed(injector, "redis-cache", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis("CLUSTER_REDIS_CACHE", "REDIS_CACHE", false)
	})

	do.ProvideNamed(injector, "redis-cache-readonly", func(i *do.Injector) (redis.UniversalClient, error) {
		if getenv("CLUSTER_REDIS_CACHE_READONLY", "REDIS_CACHE_READONLY") != "" {
			return newRedis("CLUSTER_REDIS_CACHE_READONLY", "REDIS_CACHE_READONLY", true)
		}
		// replicas of the cache cluster
		return newRedis("CLUSTER_REDIS_CACHE", "REDIS_CACHE", true)
	})

	do.ProvideNamed(injector, "redis-limiter", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis("CLUSTER_REDIS_LIMITER", "REDIS_LIMITER", false)
	})

	do.ProvideNamed(injector, "redis-mutex", func(i *do.Injector) (redis.UniversalClient, error) {
		return newRedis("CLUSTER_REDIS_MUTEX", "REDIS_MUTEX", false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache-readonly")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-limiter")
		if err != nil {
			return nil, err
		}

		return limiter.NewLimiter(dbRedis)
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-mutex")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		return redsync.New(pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.Bot, error) {
		return services.NewBot(vs["DISCORD_BOT_TOKEN"])
	})

	do.Provide(injector, func(i *do.Injector) (*services.Authentication, error) {
		return services.NewAuthentication(vs["SESSION_SECRET"])
	})

	do.Provide(injector, func(i *do.Injector) (*services.AuditWebhook, error) {
		return services.NewAuditWebhook(vs["AUDIT_WEBHOOK_URL"]), nil
	})

	do.Provide(injector, services.NewServiceConfig)
	do.Provide(injector, services.NewServiceUser)
	do.Provide(injector, services.NewServiceAdmin)
	do.Provide(injector, services.NewServiceCurrency)
	do.Provide(injector, services.NewServiceLeaderboard)
	do.Provide(injector, services.NewServiceShop)
	do.Provide(injector, services.NewServiceGachaMachine)
	do.Provide(injector, services.NewServiceTask)
	do.Provide(injector, services.NewServiceVoice)

	return injector
}
