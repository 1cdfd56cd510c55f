package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// HealthCheck reports liveness and the reachability of each named store.
func HealthCheck(checks map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		stores := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				stores[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			stores[name] = "ok"
		}
		state := "healthy"
		if status != http.StatusOK {
			state = "degraded"
		}
		return c.JSON(status, echo.Map{
			"status":  state,
			"service": "showyourbits-api",
			"stores":  stores,
		})
	}
}
