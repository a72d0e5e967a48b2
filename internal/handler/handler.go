// Package handler exposes the cart, checkout and order operations over
// HTTP. It is a thin translation layer: authentication resolves an owner
// id, requests are decoded, domain services do the work, and results or
// domain errors are mapped onto JSON responses.
package handler

import (
	"net/http"

	"github.com/lapkinv/gamesshop/internal/domain/cart"
	"github.com/lapkinv/gamesshop/internal/domain/checkout"
	"github.com/lapkinv/gamesshop/internal/domain/order"
)

// Handler holds the domain services behind the API surface.
type Handler struct {
	carts     *cart.Service
	checkouts *checkout.Service
	orders    *order.Service
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(carts *cart.Service, checkouts *checkout.Service, orders *order.Service) *Handler {
	return &Handler{
		carts:     carts,
		checkouts: checkouts,
		orders:    orders,
	}
}

// Routes returns the API route table. Callers are expected to wrap it with
// the authentication middleware; every route here assumes an owner id in
// the request context.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("GET /api/cart", h.ListCart)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveCartItem)

	mux.HandleFunc("POST /api/checkout", h.Checkout)

	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("DELETE /api/orders/{id}", h.DeleteOrder)

	return mux
}
