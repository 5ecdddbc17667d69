package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/commercegate/admin-security/internal/http/middleware"
	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/observability"
)

// PaymentInitiator is the opaque payment-provider collaborator. The real
// implementation lives outside this subsystem; handlers only need the seam.
type PaymentInitiator interface {
	Initiate(ctx context.Context, orderRef string, amountCents int64, currency string) (string, error)
}

// PaymentHandler fronts the payment-creation and order-read endpoints so the
// strictest guard chain (session + CSRF + payment route class) is exercised
// end to end.
type PaymentHandler struct {
	initiator PaymentInitiator
}

func NewPaymentHandler(initiator PaymentInitiator) *PaymentHandler {
	return &PaymentHandler{initiator: initiator}
}

type createPaymentRequest struct {
	OrderRef    string `json:"order_ref"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALID", "authentication required", nil)
		return
	}
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil || req.OrderRef == "" || req.AmountCents <= 0 || req.Currency == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "order_ref, amount_cents and currency are required", nil)
		return
	}
	providerRef, err := h.initiator.Initiate(r.Context(), req.OrderRef, req.AmountCents, req.Currency)
	if err != nil {
		response.Error(w, r, http.StatusBadGateway, "PROVIDER_ERROR", "payment provider rejected the request", nil)
		return
	}
	observability.Audit(r, "payment_initiated",
		"user_id", sess.UserID,
		"order_ref", req.OrderRef,
		"provider_ref", providerRef,
	)
	response.JSON(w, r, http.StatusAccepted, map[string]string{
		"status":       "initiated",
		"provider_ref": providerRef,
	})
}

// ListOrders is a representative general-read endpoint (api route class).
// The actual order querying is back-office CRUD outside this subsystem.
func (h *PaymentHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.SessionFromContext(r.Context()); !ok {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALID", "authentication required", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"orders": []any{}})
}

// StubPaymentInitiator acknowledges initiation with a generated reference.
// Stands in for the provider integration, which is out of scope.
type StubPaymentInitiator struct{}

func (StubPaymentInitiator) Initiate(_ context.Context, _ string, _ int64, _ string) (string, error) {
	return "pay_" + uuid.NewString(), nil
}
