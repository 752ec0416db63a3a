package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inima-app/inima/internal/notify"
)

// NotifyResponse is the fixed envelope of the public notification endpoints.
// It predates the rest of the API and is kept stable for the web form
// clients: success flag, optional order number, failure detail.
type NotifyResponse struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Details     string `json:"details,omitempty"`
}

type OrderRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Details string `json:"details"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func handleNotifyOrder(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			notifyError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" || req.Email == "" || req.Details == "" {
			notifyError(w, http.StatusBadRequest, "name, email, and details are required")
			return
		}

		order := notify.Order{
			OrderNumber: newOrderNumber(time.Now()),
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			Details:     req.Details,
		}
		subject, body, err := notify.RenderOrder(order)
		if err != nil {
			notifyError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := deps.Mailer.Send(r.Context(), subject, body); err != nil {
			notifyError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(NotifyResponse{Success: true, OrderNumber: order.OrderNumber})
	}
}

func handleNotifyContact(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ContactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			notifyError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" || req.Email == "" || req.Message == "" {
			notifyError(w, http.StatusBadRequest, "name, email, and message are required")
			return
		}

		subject, body, err := notify.RenderContact(notify.Contact{
			Name:    req.Name,
			Email:   req.Email,
			Message: req.Message,
		})
		if err != nil {
			notifyError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := deps.Mailer.Send(r.Context(), subject, body); err != nil {
			notifyError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(NotifyResponse{Success: true})
	}
}

// handleMethodNotAllowed keeps the per-surface envelopes: the notification
// endpoints answer in their own shape, everything else uses the standard
// error envelope.
func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/notify/") {
		notifyError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	httpError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method not allowed")
}

func notifyError(w http.ResponseWriter, code int, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NotifyResponse{Success: false, Details: details})
}

// newOrderNumber is date-prefixed for humans with a short random suffix for
// uniqueness.
func newOrderNumber(now time.Time) string {
	return "CMD-" + now.Format("20060102") + "-" + strings.ToUpper(uuid.New().String()[:8])
}
