package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mateabags/storefront/internal/db"
	"github.com/mateabags/storefront/internal/models"
	"github.com/mateabags/storefront/internal/services"
)

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	token, err := h.authService.Login(req.Email, req.Password)
	if errors.Is(err, services.ErrAuthDisabled) {
		h.respondError(w, ctx, http.StatusServiceUnavailable, codeUnauthorized, "admin access is not configured")
		return
	}
	if err != nil {
		h.respondError(w, ctx, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	h.respondData(w, ctx, http.StatusOK, map[string]string{"token": token})
}

// RequireAdmin guards the back office with a bearer token check.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			h.respondError(w, ctx, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}
		if _, err := h.authService.VerifyToken(token); err != nil {
			h.respondError(w, ctx, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := models.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !validOrderStatus(status) {
		h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "unknown order status")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.respondError(w, ctx, http.StatusBadRequest, codeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := h.adminService.List(ctx, status, limit)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list orders", "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}

	h.respondData(w, ctx, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handlers) AdminOrderDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	details, err := h.adminService.Detail(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		h.respondError(w, ctx, http.StatusNotFound, codeOrderNotFound, "order not found")
		return
	}
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to load order detail", "order_id", orderID, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to load order")
		return
	}

	response := map[string]any{"order": details}
	if payment, err := h.paymentStore.GetByOrderID(ctx, orderID); err == nil {
		response["payment"] = payment
	} else if !errors.Is(err, db.ErrNotFound) {
		h.loggerFromContext(ctx).Error("failed to load payment for order", "order_id", orderID, "error", err)
	}

	h.respondData(w, ctx, http.StatusOK, response)
}

func (h *Handlers) AdminSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.adminService.Summary(ctx)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to summarize orders", "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to summarize orders")
		return
	}

	h.respondData(w, ctx, http.StatusOK, summary)
}

func (h *Handlers) AdminOrderProcessing(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.adminService.MarkProcessing, models.StatusProcessing)
}

func (h *Handlers) AdminOrderShip(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.adminService.Ship, models.StatusShipped)
}

func (h *Handlers) AdminOrderDeliver(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.adminService.Deliver, models.StatusDelivered)
}

func (h *Handlers) AdminOrderCancel(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.adminService.Cancel, models.StatusCancelled)
}

func (h *Handlers) adminTransition(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, orderID uuid.UUID) error, to models.OrderStatus) {
	ctx := r.Context()

	orderID, ok := h.orderIDFromPath(w, r)
	if !ok {
		return
	}

	err := transition(ctx, orderID)
	if errors.Is(err, db.ErrInvalidStatusTransition) {
		h.respondError(w, ctx, http.StatusConflict, codeInvalidTransition, "order is not in a state that allows this transition")
		return
	}
	if errors.Is(err, db.ErrNotFound) {
		h.respondError(w, ctx, http.StatusNotFound, codeOrderNotFound, "order not found")
		return
	}
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to transition order", "order_id", orderID, "to", to, "error", err)
		h.respondError(w, ctx, http.StatusInternalServerError, codeInternal, "failed to update order")
		return
	}

	h.respondData(w, ctx, http.StatusOK, map[string]any{
		"order_id": orderID,
		"status":   to,
	})
}

func (h *Handlers) orderIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r.Context(), http.StatusBadRequest, codeValidation, "order id is not valid")
		return uuid.Nil, false
	}
	return orderID, true
}

func validOrderStatus(status models.OrderStatus) bool {
	switch status {
	case models.StatusPending, models.StatusPaid, models.StatusProcessing,
		models.StatusShipped, models.StatusDelivered, models.StatusCancelled, models.StatusRefunded:
		return true
	default:
		return false
	}
}
