package risk

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/geoippro/pkg/common"
	"github.com/richxcame/geoippro/pkg/middleware"
)

// EvaluationService is what the HTTP handler needs from the service layer.
type EvaluationService interface {
	Evaluate(ctx context.Context, invoiceID string, req RequestContext) *Evaluation
	GetEvaluation(ctx context.Context, id uuid.UUID) (*Evaluation, error)
	Configuration() Configuration
}

// Handler serves the risk API.
type Handler struct {
	service EvaluationService
}

// NewHandler creates a new risk handler
func NewHandler(service EvaluationService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the risk endpoints under rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	risk := rg.Group("/risk")
	{
		risk.POST("/evaluate", h.Evaluate)
		risk.GET("/evaluations/:id", h.GetEvaluation)
		risk.GET("/config", h.GetConfiguration)
	}
}

// EvaluateRequest is the body of POST /risk/evaluate.
type EvaluateRequest struct {
	InvoiceID      string         `json:"invoice_id" validate:"omitempty,max=64"`
	IP             string         `json:"ip" validate:"required,ip"`
	BillingCountry string         `json:"billing_country" validate:"omitempty,country_alpha2"`
	BillingAddress BillingAddress `json:"billing_address"`
	Email          string         `json:"email" validate:"omitempty,email"`
	FirstName      string         `json:"first_name" validate:"max=128"`
	LastName       string         `json:"last_name" validate:"max=128"`
	FullName       string         `json:"full_name" validate:"max=256"`
	Phone          string         `json:"phone" validate:"max=32"`
}

// ToRequestContext builds the engine input. An explicit full name wins over
// first and last name. The billing country is upper-cased to match resolved
// country codes.
func (r EvaluateRequest) ToRequestContext() RequestContext {
	name := r.FullName
	if name == "" {
		name = FullName(r.FirstName, r.LastName)
	}
	country := strings.ToUpper(strings.TrimSpace(r.BillingCountry))
	addr := r.BillingAddress
	if addr.Country == "" {
		addr.Country = country
	}
	return RequestContext{
		IP:             r.IP,
		BillingCountry: country,
		BillingAddress: addr,
		Email:          r.Email,
		FullName:       name,
		Phone:          r.Phone,
	}
}

// Evaluate runs a risk evaluation
func (h *Handler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if !middleware.BindAndValidate(c, &req) {
		return
	}

	eval := h.service.Evaluate(c.Request.Context(), req.InvoiceID, req.ToRequestContext())
	common.SuccessResponse(c, http.StatusOK, eval)
}

// GetEvaluation returns a recorded evaluation
func (h *Handler) GetEvaluation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid evaluation id")
		return
	}

	eval, err := h.service.GetEvaluation(c.Request.Context(), id)
	if err != nil {
		common.AppErrorResponse(c, err)
		return
	}

	common.SuccessResponse(c, http.StatusOK, eval)
}

// GetConfiguration returns the active check configuration without secrets
func (h *Handler) GetConfiguration(c *gin.Context) {
	common.SuccessResponse(c, http.StatusOK, h.service.Configuration().Summary())
}
