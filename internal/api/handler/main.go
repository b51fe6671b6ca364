package handler

import (
	"net/http"

	"hamsterhub/internal/interfaces"
	"hamsterhub/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
	BotAPIKey string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🐹")
	})

	authentication, err := do.Invoke[*services.Authentication](cfg.Container)
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](cfg.Container)
	if err != nil {
		return nil, err
	}

	routesAPIv1 := r.Group("/api/v1")
	{
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})
		routesAPIv1.Use(cors)

		// called by the gateway listener, never by browsers
		v := groupVoice{cfg.Container}
		routesAPIv1Bot := routesAPIv1.Group("/bot", AuthnBot(cfg.BotAPIKey, limiter))
		{
			routesAPIv1Bot.POST("/voice/join", v.Join)
			routesAPIv1Bot.POST("/voice/leave", v.Leave)
		}

		routesAPIv1.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated request.
		routesAPIv1.GET("", Hello)

		u := groupUser{cfg.Container}
		routesAPIv1.GET("/user/me", u.Me)

		cu := groupCurrency{cfg.Container}
		routesAPIv1.GET("/currency/balances", cu.Balances)
		routesAPIv1.GET("/currency/history", cu.History)
		routesAPIv1.POST("/currency/transfer", cu.Transfer)

		s := groupShop{cfg.Container}
		routesAPIv1.GET("/shop/items", s.GetItems)
		routesAPIv1.GET("/shop/items/:id", s.GetItem)
		routesAPIv1.POST("/shop/items/:id/purchase", s.Purchase)
		routesAPIv1.GET("/shop/purchases", s.MyPurchases)

		g := groupGacha{cfg.Container}
		routesAPIv1.GET("/gacha/pool", g.Pool)
		routesAPIv1.POST("/gacha/pull", g.Pull)
		routesAPIv1.GET("/gacha/history", g.History)
		routesAPIv1.GET("/inventory", g.Inventory)

		t := groupTask{cfg.Container}
		routesAPIv1.GET("/tasks", t.List)
		routesAPIv1.POST("/tasks", t.Create)
		routesAPIv1.GET("/tasks/:id", t.Get)
		routesAPIv1.POST("/tasks/:id/accept", t.Accept)
		routesAPIv1.POST("/tasks/:id/complete", t.Complete)
		routesAPIv1.POST("/tasks/:id/cancel", t.Cancel)
		routesAPIv1.POST("/tasks/:id/submit", t.Submit)
		routesAPIv1.POST("/tasks/:id/winner", t.SelectWinner)

		routesAPIv1.GET("/voice/me", v.Me)
		routesAPIv1.GET("/voice/sessions", v.Sessions)
		routesAPIv1.GET("/voice/online", v.Online)

		l := groupLeaderboard{cfg.Container}
		routesAPIv1.GET("/leaderboard", l.Boards)
		routesAPIv1.GET("/leaderboard/:board", l.GetLeaderboard)

		routesAPIv1Admin := routesAPIv1.Group("/admin", RequireAdmin(cfg.Container))
		{
			a := groupAdmin{cfg.Container}
			routesAPIv1Admin.GET("/users", a.SearchUsers)
			routesAPIv1Admin.GET("/users/:id", a.GetUser)
			routesAPIv1Admin.POST("/currency/grant", a.Grant)
			routesAPIv1Admin.POST("/currency/deduct", a.Deduct)
			routesAPIv1Admin.POST("/tasks/:id/cancel", a.CancelTask)
			routesAPIv1Admin.GET("/config", a.GetConfigs)
			routesAPIv1Admin.PUT("/config/:key", a.SetConfig)
			routesAPIv1Admin.POST("/leaderboard/rebuild", a.RebuildLeaderboards)
			routesAPIv1Admin.POST("/voice/sweep", a.SweepVoice)

			routesAPIv1Admin.GET("/shop/items", s.GetAllItems)
			routesAPIv1Admin.POST("/shop/items", s.CreateItem)
			routesAPIv1Admin.PUT("/shop/items/:id", s.UpdateItem)
			routesAPIv1Admin.PATCH("/shop/items/:id/stock", s.SetStock)
			routesAPIv1Admin.DELETE("/shop/items/:id", s.DeleteItem)
			routesAPIv1Admin.GET("/shop/purchases", s.AllPurchases)

			routesAPIv1Admin.GET("/gacha/items", g.GetItems)
			routesAPIv1Admin.GET("/gacha/rates", g.RatesReport)
			routesAPIv1Admin.POST("/gacha/items", g.CreateItem)
			routesAPIv1Admin.PUT("/gacha/items/:id", g.UpdateItem)
			routesAPIv1Admin.DELETE("/gacha/items/:id", g.DeleteItem)
		}
	}

	return r, nil
}

func Hello(c echo.Context) error {
	return RestAbort(c, "hello world", nil)
}
