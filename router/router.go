// Package router assembles the gin engine for the dashboard API.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/handlers"
	"github.com/podboard/backend/middleware"
	"github.com/podboard/backend/models"
	"github.com/podboard/backend/natsserver"
	"github.com/podboard/backend/services"
	"go.uber.org/zap"
)

// APIPrefix is the namespace guarded by the auth gateway.
const APIPrefix = "/api"

// Paths inside APIPrefix reachable without a token.
var PublicPaths = []string{
	APIPrefix + "/auth/login",
	APIPrefix + "/serverStatus",
}

// Deps are the collaborators the routes are wired to. NATS and Hub are
// optional.
type Deps struct {
	Users       *services.UserService
	Tokens      *auth.TokenService
	NATS        *natsserver.EmbeddedNATS
	Hub         *services.UserHub
	Log         *zap.Logger
	CORSOrigins []string
	Started     time.Time
}

// New builds the engine. The gateway pipeline is mounted on the engine so it
// also guards /api paths that match no route. Each route group mounts its
// full ordered pipeline; the gateway step is skipped there once a principal
// is attached, so tokens are verified once per request.
func New(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	if d.Started.IsZero() {
		d.Started = time.Now()
	}

	authenticated := middleware.Chain(middleware.NewGateway(d.Tokens, APIPrefix, PublicPaths...))
	signedIn := authenticated.Then(middleware.RequirePrincipal())
	adminOnly := authenticated.Then(middleware.RequireRole(models.RoleAdmin))

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(log), middleware.Recovery(log))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))
	r.Use(authenticated.Handler())

	status := handlers.NewStatusHandler(d.Started, d.NATS, d.Hub)
	authH := handlers.NewAuthHandler(d.Users, log)
	events := handlers.NewEventsHandler(d.Hub, log)

	r.GET("/health", status.Health)

	api := r.Group(APIPrefix)
	{
		api.GET("/serverStatus", status.ServerStatus)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authH.Login)
			authGroup.GET("/me", signedIn.Handler(), authH.Me)

			users := authGroup.Group("/users", adminOnly.Handler())
			{
				users.GET("", authH.ListUsers)
				users.POST("", authH.CreateUser)
				users.GET("/events", events.UserEvents)
				users.PATCH("/:id", authH.UpdateUser)
				users.DELETE("/:id", authH.DeleteUser)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	return cfg
}
