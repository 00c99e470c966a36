package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/geoippro/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Evaluate(ctx context.Context, invoiceID string, req RequestContext) *Evaluation {
	args := m.Called(ctx, invoiceID, req)
	return args.Get(0).(*Evaluation)
}

func (m *mockService) GetEvaluation(ctx context.Context, id uuid.UUID) (*Evaluation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Evaluation), args.Error(1)
}

func (m *mockService) Configuration() Configuration {
	args := m.Called()
	return args.Get(0).(Configuration)
}

func setupRouter(svc EvaluationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_Evaluate(t *testing.T) {
	svc := new(mockService)
	expected := RequestContext{
		IP:             "1.2.3.4",
		BillingCountry: "US",
		BillingAddress: BillingAddress{City: "Austin", Country: "US"},
		Email:          "jane@example.com",
		FullName:       "Jane Doe",
	}
	svc.On("Evaluate", mock.Anything, "INV-7", expected).Return(&Evaluation{
		ID:      uuid.New(),
		Verdict: Verdict{IsFraud: true, Reasons: []string{"IP address belongs to a data center network: Amazon.com, Inc. (matched \"Amazon\")"}},
	}).Once()

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/risk/evaluate", map[string]interface{}{
		"invoice_id":      "INV-7",
		"ip":              "1.2.3.4",
		"billing_country": "us",
		"billing_address": map[string]string{"city": "Austin"},
		"email":           "jane@example.com",
		"first_name":      "Jane",
		"last_name":       "Doe",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	assert.True(t, resp["success"].(bool))
	verdict := resp["data"].(map[string]interface{})["verdict"].(map[string]interface{})
	assert.True(t, verdict["is_fraud"].(bool))
	svc.AssertExpectations(t)
}

func TestHandler_EvaluateValidation(t *testing.T) {
	svc := new(mockService)

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/risk/evaluate", map[string]interface{}{
		"ip":              "999.1.1.1",
		"billing_country": "USA",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := parseResponse(t, w)
	assert.False(t, resp["success"].(bool))
	details := resp["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Contains(t, details, "ip")
	assert.Contains(t, details, "billing_country")
	svc.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_EvaluateMalformedBody(t *testing.T) {
	r := setupRouter(new(mockService))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/evaluate", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetEvaluation(t *testing.T) {
	svc := new(mockService)
	id := uuid.New()
	svc.On("GetEvaluation", mock.Anything, id).Return(&Evaluation{ID: id, Verdict: ClearVerdict()}, nil).Once()
	missing := uuid.New()
	svc.On("GetEvaluation", mock.Anything, missing).Return(nil, common.NewNotFoundError("evaluation not found", ErrEvaluationNotFound)).Once()
	r := setupRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/v1/risk/evaluations/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/risk/evaluations/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/risk/evaluations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestHandler_GetConfiguration(t *testing.T) {
	svc := new(mockService)
	svc.On("Configuration").Return(mustConfig(t, Settings{ReputationEnabled: true, ReputationAPIKey: "secret", MismatchEnabled: true}))

	w := doJSON(setupRouter(svc), http.MethodGet, "/api/v1/risk/config", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	data := parseResponse(t, w)["data"].(map[string]interface{})
	assert.True(t, data["reputation_api_key_set"].(bool))
}
