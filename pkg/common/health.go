package common

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthCheckWithDeps runs every dependency check concurrently and answers
// 503 when any of them fails.
func HealthCheckWithDeps(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			healthy = true
			results = make(map[string]string, len(checks))
		)

		for name, check := range checks {
			wg.Add(1)
			go func(name string, check func() error) {
				defer wg.Done()
				err := check()

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					results[name] = "unhealthy: " + err.Error()
					healthy = false
					return
				}
				results[name] = "healthy"
			}(name, check)
		}
		wg.Wait()

		resp := HealthResponse{Status: "healthy", Service: serviceName, Version: version, Checks: results}
		status := http.StatusOK
		if !healthy {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}
