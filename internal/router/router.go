package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ataraxia/internal/handler"
	"ataraxia/internal/middleware"
	"ataraxia/internal/service"
)

// AuthLimit bounds sign-in attempts per client IP.
type AuthLimit struct {
	PerSecond float64
	Burst     int
}

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	preferenceHandler *handler.PreferenceHandler,
	corsOrigins []string,
	authLimit AuthLimit,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	limited := auth.Group("")
	limited.Use(middleware.RateLimit(authLimit.PerSecond, authLimit.Burst, 10*time.Minute))
	limited.POST("/register", authHandler.Register)
	limited.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.Auth(authService), authHandler.Me)

	preferences := api.Group("/preferences")
	preferences.Use(middleware.Auth(authService))
	preferences.HEAD("", preferenceHandler.Head)
	preferences.GET("", preferenceHandler.Get)
	preferences.PUT("", preferenceHandler.Put)

	return engine
}
