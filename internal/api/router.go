package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// defaultAllowedOrigins covers local development when no origins are
// configured.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORSMiddleware allows the configured browser origins to call the API.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultAllowedOrigins
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RegisterRoutes registers all routes for the meeting pipeline service.
func RegisterRoutes(router *gin.Engine, api *API, allowedOrigins []string) {
	router.Use(CORSMiddleware(allowedOrigins))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/meetings", api.SubmitMeetingHandler)
		apiGroup.POST("/ocr/extract", api.ExtractTextHandler)
		apiGroup.GET("/groups", api.GetGroupsHandler)

		apiGroup.POST("/onboarding", api.SaveOnboardingHandler)
		apiGroup.GET("/onboarding/:user_id", api.GetOnboardingHandler)

		admin := apiGroup.Group("/admin")
		{
			admin.DELETE("/clear-data", api.ClearDataHandler)
			admin.DELETE("/reset-onboarding/:user_id", api.ResetOnboardingHandler)
		}

		apiGroup.GET("/health", api.HealthHandler)
		apiGroup.GET("/health/db", api.DBHealthHandler)
	}
}
