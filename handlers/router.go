package handlers

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the middleware chain and every route.
func NewRouter(h *Handler, allowedOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.GET("/health", h.Health)
	router.GET("/static/app.js", h.Script)

	session := router.Group("/", h.Session())
	session.GET("/", h.Index)
	session.GET("/api/view", h.View)
	session.POST("/api/commands", h.Command)
	session.POST("/api/admin/uis", h.Upload)
	session.POST("/api/theme", h.Theme)
	session.POST("/auth/telegram", h.SignIn)
	session.POST("/auth/logout", h.SignOut)

	return router
}

func corsConfig(allowedOrigins string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "Accept", requestIDHeader}
	config.AllowCredentials = true

	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// Credentials cannot be combined with a literal wildcard origin.
		config.AllowOriginFunc = func(string) bool { return true }
		return config
	}
	config.AllowOrigins = origins
	return config
}
