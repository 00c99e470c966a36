package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAppError_Wrapping(t *testing.T) {
	cause := errors.New("no rows")
	err := fmt.Errorf("lookup: %w", NewNotFoundError("evaluation not found", cause))

	appErr := AsAppError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "evaluation not found: no rows", appErr.Error())

	assert.Equal(t, http.StatusInternalServerError, AsAppError(errors.New("boom")).Code)
}

func TestAppErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	AppErrorResponse(c, NewBadRequestError("invalid ip", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid ip", resp.Error.Message)
}

func TestHealthCheckWithDeps(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)

	HealthCheckWithDeps("geoippro", "1.0.0", map[string]func() error{
		"redis":    func() error { return nil },
		"postgres": func() error { return errors.New("refused") },
	})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["redis"])
	assert.Equal(t, "unhealthy: refused", resp.Checks["postgres"])
}
