package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// Checkout handles POST /api/checkout: commits the caller's cart into a new
// pending order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	o, err := h.checkouts.Checkout(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, *o)
	})
}

// ListOrders handles GET /api/orders: the caller's order history, newest
// first, line items included.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orders.History(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, o := range orders {
						encodeOrder(e, o)
					}
				})
			})
			e.Field("count", func(e *jx.Encoder) { e.Int(len(orders)) })
		})
	})
}

// DeleteOrder handles DELETE /api/orders/{id}: removes one of the caller's
// orders and its line items.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID := r.PathValue("id")
	if orderID == "" {
		writeErrorStatus(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orders.Delete(r.Context(), ownerID, orderID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
