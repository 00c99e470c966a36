package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/richxcame/geoippro/internal/risk"
	"github.com/richxcame/geoippro/pkg/eventbus"
	"github.com/richxcame/geoippro/pkg/logger"
	"github.com/richxcame/geoippro/pkg/validation"
	"go.uber.org/zap"
)

const (
	eventSource         = "geoippro"
	eventFraudChecked   = "invoice.fraud_checked"
	invoiceCreatedGroup = "-invoices-created"
)

// Evaluator is the part of the risk service the handler needs.
type Evaluator interface {
	Evaluate(ctx context.Context, invoiceID string, req risk.RequestContext) *risk.Evaluation
}

// Subscriber registers durable handlers on the bus.
type Subscriber interface {
	Subscribe(ctx context.Context, subject, durable string, handler eventbus.Handler) error
}

// InvoiceCreatedData is the payload of invoices.created.
type InvoiceCreatedData = risk.EvaluateRequest

// FraudCheckedData is the payload of invoices.fraud_checked.
type FraudCheckedData struct {
	InvoiceID    string    `json:"invoice_id"`
	EvaluationID uuid.UUID `json:"evaluation_id"`
	IsFraud      bool      `json:"is_fraud"`
	Reasons      []string  `json:"reasons"`
	Note         string    `json:"note,omitempty"`
}

// EventHandler screens newly created invoices and announces the verdict.
type EventHandler struct {
	evaluator Evaluator
	publisher eventbus.Publisher
}

// NewEventHandler creates an event handler backed by the risk service.
func NewEventHandler(evaluator Evaluator, publisher eventbus.Publisher) *EventHandler {
	return &EventHandler{evaluator: evaluator, publisher: publisher}
}

// RegisterSubscriptions subscribes to invoice creation events on the bus.
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, bus Subscriber, durable string) error {
	if err := bus.Subscribe(ctx, eventbus.SubjectInvoiceCreated, durable+invoiceCreatedGroup, h.handleInvoiceCreated); err != nil {
		return fmt.Errorf("subscribe to %s: %w", eventbus.SubjectInvoiceCreated, err)
	}
	logger.Info("invoices: subscribed to invoice creation events")
	return nil
}

func (h *EventHandler) handleInvoiceCreated(ctx context.Context, event *eventbus.Event) error {
	log := logger.WithContext(ctx)

	var data InvoiceCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Error("invoices: dropping undecodable invoice event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return nil
	}
	if data.InvoiceID == "" {
		log.Warn("invoices: dropping invoice event without invoice id", zap.String("event_id", event.ID))
		return nil
	}
	if err := validation.ValidateStruct(&data); err != nil {
		log.Warn("invoices: clearing invalid invoice fields before screening",
			zap.String("invoice_id", data.InvoiceID),
			zap.Strings("fields", clearInvalidFields(&data, err)),
			zap.Error(err),
		)
	}

	evaluation := h.evaluator.Evaluate(ctx, data.InvoiceID, data.ToRequestContext())

	result := FraudCheckedData{
		InvoiceID:    data.InvoiceID,
		EvaluationID: evaluation.ID,
		IsFraud:      evaluation.Verdict.IsFraud,
		Reasons:      evaluation.Verdict.Reasons,
		Note:         evaluation.Verdict.Note(),
	}

	out, err := eventbus.NewEvent(eventFraudChecked, eventSource, result)
	if err != nil {
		return err
	}
	if err := h.publisher.Publish(ctx, eventbus.SubjectInvoiceFraudChecked, out); err != nil {
		log.Error("invoices: failed to publish fraud check result",
			zap.String("invoice_id", data.InvoiceID),
			zap.Error(err),
		)
		return fmt.Errorf("publish fraud check result: %w", err)
	}

	if result.IsFraud {
		log.Info("invoices: invoice flagged as fraudulent",
			zap.String("invoice_id", data.InvoiceID),
			zap.Strings("reasons", result.Reasons),
		)
	}
	return nil
}

// clearInvalidFields blanks the screening inputs that failed validation so
// the invoice is still evaluated on what remains. The invoice id is kept
// since the verdict is published under it.
func clearInvalidFields(data *InvoiceCreatedData, err error) []string {
	var verr *validation.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}

	cleared := make([]string, 0, len(verr.Errors))
	for field := range verr.Errors {
		switch field {
		case "ip":
			data.IP = ""
		case "billing_country":
			data.BillingCountry = ""
		case "email":
			data.Email = ""
		case "phone":
			data.Phone = ""
		case "first_name":
			data.FirstName = ""
		case "last_name":
			data.LastName = ""
		case "full_name":
			data.FullName = ""
		default:
			continue
		}
		cleared = append(cleared, field)
	}
	sort.Strings(cleared)
	return cleared
}
