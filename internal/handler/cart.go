package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
)

type addCartItemRequest struct {
	ProductID int64
	Quantity  int
}

func decodeAddCartItem(r *http.Request) (addCartItemRequest, error) {
	// Quantity defaults to 1 when omitted, matching the storefront's
	// one-click add.
	req := addCartItemRequest{Quantity: 1}

	d := jx.Decode(r.Body, 512)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, err := d.Int64()
			req.ProductID = v
			return err
		case "quantity":
			v, err := d.Int()
			req.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

// AddCartItem handles POST /api/cart/items: merge-or-create an entry for
// the caller's cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := decodeAddCartItem(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.carts.Add(r.Context(), ownerID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Int64(entry.ID) })
			e.Field("product_id", func(e *jx.Encoder) { e.Int64(entry.ProductID) })
			e.Field("quantity", func(e *jx.Encoder) { e.Int(entry.Quantity) })
			e.Field("added_at", func(e *jx.Encoder) { encodeTime(e, entry.AddedAt) })
		})
	})
}

// ListCart handles GET /api/cart: the caller's cart with live prices and
// totals.
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	contents, err := h.carts.List(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, line := range contents.Lines {
						encodeCartLine(e, line)
					}
				})
			})
			e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, contents.Total) })
		})
	})
}

// RemoveCartItem handles DELETE /api/cart/items/{id}.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entryID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid cart entry id")
		return
	}

	if err := h.carts.Remove(r.Context(), ownerID, entryID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
