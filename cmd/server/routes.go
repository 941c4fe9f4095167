package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/minaret-home/minaret/internal/db"
	"github.com/minaret-home/minaret/internal/http/api"
	authapi "github.com/minaret-home/minaret/internal/http/api/admin/auth/endpoints"
	boardapi "github.com/minaret-home/minaret/internal/http/api/board/endpoints"
	controlapi "github.com/minaret-home/minaret/internal/http/api/control/endpoints"
	"github.com/minaret-home/minaret/internal/http/middleware"
	"github.com/minaret-home/minaret/internal/view"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, env Environment, store db.Store, lv *view.LiveView, sched boardapi.Scheduler, cmd controlapi.Commander) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
			"If-None-Match",
			"X-If-None-Match",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"ETag",
			"X-Content-ETag",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
		Auth:   false,
	},
		authapi.AuthPublicModule(env.SecretKey, store),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/admin",
		Auth:      true,
		SecretKey: env.SecretKey,
		Store:     store,
	},
		controlapi.ControlModule(cmd),
		// session endpoints that require auth
		authapi.AuthSessionModule(env.SecretKey, store),
	)

	// the board is polled by every dashboard on the network; a one second
	// cache collapses identical reads and the limiter caps misbehaving
	// clients
	boardCache := cache.New(time.Second, time.Minute)
	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
		Middleware: []gin.HandlerFunc{
			middleware.RateLimiter(rate.Limit(10), 30),
			middleware.Cache(boardCache, time.Second),
		},
	},
		boardapi.BoardModule(lv, sched),
	)
}
