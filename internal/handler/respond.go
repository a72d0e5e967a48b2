package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lapkinv/gamesshop/internal/domain/cart"
	"github.com/lapkinv/gamesshop/internal/domain/checkout"
	"github.com/lapkinv/gamesshop/internal/domain/order"
	"github.com/lapkinv/gamesshop/internal/domain/product"
)

// writeJSON encodes a response body with jx and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeErrorStatus writes the standard {code, message} error body.
func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// writeError maps a domain error to an HTTP response. Unrecognized errors
// are treated as storage failures: logged and reported as 500 without
// leaking detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidQty *cart.InvalidQuantityError

	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		writeErrorStatus(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, checkout.ErrConflict):
		writeErrorStatus(w, http.StatusConflict, "checkout conflict, please retry")
	case errors.As(err, &invalidQty):
		writeErrorStatus(w, http.StatusUnprocessableEntity, invalidQty.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}

// encodeDecimal writes a NUMERIC value as an exact JSON number.
// decimal.String always renders plain decimal notation, which is a valid
// JSON number literal.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.String())
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeCartLine(e *jx.Encoder, l cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(l.ID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Int64(l.ProductID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(l.ProductTitle) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, l.UnitPrice) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("line_total", func(e *jx.Encoder) { encodeDecimal(e, l.LineTotal) })
		e.Field("added_at", func(e *jx.Encoder) { encodeTime(e, l.AddedAt) })
	})
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("total_amount", func(e *jx.Encoder) { encodeDecimal(e, o.TotalAmount) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range o.Items {
					encodeLineItem(e, item)
				}
			})
		})
	})
}

func encodeLineItem(e *jx.Encoder, li order.LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product_id", func(e *jx.Encoder) { e.Int64(li.ProductID) })
		e.Field("title", func(e *jx.Encoder) { e.Str(li.ProductTitle) })
		e.Field("price_at_purchase", func(e *jx.Encoder) { encodeDecimal(e, li.PriceAtPurchase) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(li.Quantity) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, li.Subtotal()) })
	})
}
