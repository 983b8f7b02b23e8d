package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dejobratic/payflow/internal/payments/app"
	"github.com/dejobratic/payflow/internal/payments/domain"
)

// maxWebhookBody bounds provider webhook payloads; Stripe events are a few KB.
const maxWebhookBody = 64 * 1024

// Handler exposes HTTP endpoints for payment lifecycle operations.
type Handler struct {
	service *app.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the payment handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/orders/", h.handleOrderSubresource)
	mux.HandleFunc("/v1/payment-intents/", h.handleIntentByID)
	mux.HandleFunc("/v1/webhooks/payments", h.handleWebhook)
	mux.HandleFunc("/v1/payments/config", h.handleConfig)
}

func (h *Handler) handleOrderSubresource(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/v1/orders/")
	trimmed = strings.TrimSuffix(trimmed, "/")

	switch {
	case strings.HasSuffix(trimmed, "/payment-intent"):
		id := strings.TrimSuffix(trimmed, "/payment-intent")
		if id == "" {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.resolveIntent(w, r, id)

	case strings.HasSuffix(trimmed, "/refund"):
		id := strings.TrimSuffix(trimmed, "/refund")
		if id == "" {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.issueRefund(w, r, id)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) resolveIntent(w http.ResponseWriter, r *http.Request, orderID string) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "missing principal")
		return
	}

	credentials, err := h.service.ResolveIntent(r.Context(), orderID, principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, credentials)
}

type refundRequest struct {
	Amount *float64 `json:"amount"`
	Reason string   `json:"reason"`
}

func (h *Handler) issueRefund(w http.ResponseWriter, r *http.Request, orderID string) {
	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "missing principal")
		return
	}

	var payload refundRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
	}

	refund, err := h.service.IssueRefund(r.Context(), orderID, payload.Amount, payload.Reason, principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"refund": refund})
}

func (h *Handler) handleIntentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/payment-intents/")
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "payment intent not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	principal, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "missing principal")
		return
	}

	status, err := h.service.IntentStatus(r.Context(), id, principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable payload")
		return
	}

	if err := h.service.ProcessWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"publishableKey": h.service.PublishableKey()})
}

// principalFrom reads the pre-validated identity set by the gateway.
// Authentication happened upstream; an absent principal means the route is
// being hit without the gateway and is refused.
func principalFrom(r *http.Request) (domain.Principal, bool) {
	id := strings.TrimSpace(r.Header.Get("X-Principal-ID"))
	if id == "" {
		return domain.Principal{}, false
	}

	role := domain.Role(strings.TrimSpace(r.Header.Get("X-Principal-Role")))
	if role == "" {
		role = domain.RoleCustomer
	}

	return domain.Principal{ID: id, Role: role}, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid signature")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "concurrent update, retry the request")
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "payment provider unavailable, retry the request")
	default:
		// Provider internals never leak to callers.
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
