package main

import (
	"net/http"
	"time"

	"bitbucket.org/consolelogwin/veritas_backend/agents"
	"bitbucket.org/consolelogwin/veritas_backend/config"
	"github.com/gin-gonic/gin"
)

// healthHandler reports the state of every dependency the pipeline needs.
// Degraded capabilities do not fail the endpoint: the pipeline runs with
// fallbacks, so the service is still serving.
func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		components := gin.H{}
		healthy := true

		db := config.GetDB()
		if db == nil {
			components["database"] = "down"
			healthy = false
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			components["database"] = "down"
			healthy = false
		} else {
			components["database"] = "up"
		}

		if rdb := config.GetRedisDB(); rdb == nil {
			components["redis"] = "down"
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}

		degraded := false
		capabilities := map[string]any{
			"validate": app.validator,
			"assess":   app.assessor,
			"compose":  app.composer,
		}
		for name, capability := range capabilities {
			checker, ok := capability.(agents.HealthChecker)
			if !ok {
				components[name] = "unknown"
				continue
			}
			if err := checker.Health(ctx); err != nil {
				components[name] = "degraded"
				degraded = true
			} else {
				components[name] = "up"
			}
		}

		status := "healthy"
		code := http.StatusOK
		if degraded || components["redis"] == "down" {
			status = "degraded"
		}
		if !healthy {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
			"time":       time.Now().UTC().Format(time.RFC3339),
		})
	}
}
