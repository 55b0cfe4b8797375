package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/labstack/echo/v4" // the Echo web framework handles routing
	"github.com/redis/go-redis/v9"

	"github.com/bytebond/bytebond/internal/config"
	"github.com/bytebond/bytebond/internal/handler"
	"github.com/bytebond/bytebond/internal/middleware"
)

// Handlers bundles every HTTP handler the router mounts.  main wires the
// dependencies once and hands the set over here.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Question   *handler.QuestionHandler
	Answer     *handler.UserAnswerHandler
	Game       *handler.GameHandler
	Event      *handler.EventHandler
	Connection *handler.ConnectionHandler
	WS         *handler.WSHandler
}

// Register mounts the full API surface.  Three tiers: public routes
// (health, signup, login, question sampling), authenticated routes behind
// JWTAuth, and admin routes behind RequireAdmin on top of that.  The Redis
// token bucket guards the public tier; the question sampler additionally
// gets its own tight bucket because its random ordering invites scraping.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// The sampler limit mirrors the product's 5-requests-per-minute rule.
	samplerCfg := config.LoadRateLimitConfig()
	samplerCfg.Capacity = 5
	samplerCfg.RefillTokens = 5
	samplerCfg.RefillInterval = time.Minute
	sampler := middleware.NewTokenBucket(samplerCfg, rdb)

	e.GET("/healthz", handler.Health)

	// Unauthenticated: signup, both login flavors, token refresh, logout by
	// refresh token, and the signup question sampler.
	auth := e.Group("/v1/auth", limiter)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/admin-login", h.Auth.AdminLogin)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	e.POST("/v1/users", h.User.Signup, limiter)
	e.GET("/v1/questions", h.Question.Random, sampler)

	// Websocket handshake authenticates itself from the token query
	// parameter, so it stays outside the JWT middleware.
	e.GET("/ws", h.WS.Serve)

	// Authenticated tier.
	v1 := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	v1.GET("/me", h.Auth.Me)
	v1.POST("/logout", h.Auth.Logout)

	v1.GET("/game/status", h.Game.Status)
	v1.POST("/game/scan", h.Game.Scan)
	v1.POST("/game/answer", h.Game.Answer)
	v1.POST("/game/complete", h.Game.Complete)
	v1.POST("/game/cancel", h.Game.Cancel)

	v1.GET("/leaderboard", h.User.Leaderboard)

	v1.POST("/user-answers", h.Answer.Create)
	v1.GET("/user-answers", h.Answer.ListMine)
	v1.PUT("/user-answers/:id", h.Answer.Update)
	v1.DELETE("/user-answers/:id", h.Answer.Delete)

	// Admin tier.
	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.POST("/events", h.Event.Create)
	admin.GET("/events", h.Event.List)
	admin.GET("/events/:id", h.Event.Get)
	admin.PUT("/events/:id", h.Event.Update)
	admin.DELETE("/events/:id", h.Event.Delete)
	admin.POST("/game/start", h.Event.StartGame)
	admin.POST("/game/stop", h.Event.StopGame)

	admin.POST("/questions", h.Question.Create)
	admin.GET("/questions", h.Question.List)
	admin.PUT("/questions/:id", h.Question.Update)
	admin.DELETE("/questions/:id", h.Question.Delete)

	admin.POST("/users", h.User.CreateAdmin)
	admin.GET("/users", h.User.List)
	admin.DELETE("/users/:id", h.User.Delete)

	admin.GET("/connections", h.Connection.List)
	admin.GET("/connections/:id", h.Connection.Get)
	admin.PATCH("/connections/:id", h.Connection.UpdateStatus)
	admin.DELETE("/connections/:id", h.Connection.Delete)

	admin.GET("/user-answers", h.Answer.ListAll)
}
