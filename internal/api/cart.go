package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/option"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

// maxBodyBytes caps request bodies; cart payloads are small.
const maxBodyBytes = 1 << 20

type addToCartRequest struct {
	ProductID          int64
	Quantity           int
	Selection          option.Selection
	SubscriptionPlanID int64
}

func decodeAddToCart(data []byte) (addToCartRequest, error) {
	req := addToCartRequest{Quantity: 1}
	d := jx.DecodeBytes(data)
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
		case "subscription_plan_id":
			v, err := d.Int64()
			req.SubscriptionPlanID = v
			return err
		case "options":
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			req.Selection, err = option.DecodeSelection(raw)
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	req, err := decodeAddToCart(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	session := SessionFromContext(r.Context())
	err = h.cart.Add(r.Context(), session.CustomerID, req.ProductID, req.Quantity, req.Selection, req.SubscriptionPlanID)
	if err != nil {
		var optErr *cart.InvalidOptionsError
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
		case errors.Is(err, pricing.ErrProductNotFound):
			writeError(w, http.StatusUnprocessableEntity, "product not found")
		case errors.As(err, &optErr):
			writeOptionErrors(w, optErr.Errors)
		default:
			h.internalError(w, r, err, "add to cart")
		}
		return
	}
	h.listCart(w, r)
}

func (h *Handler) listCart(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	lines, err := h.cart.Priced(r.Context(), session.CustomerID, session.CustomerGroupID)
	if err != nil {
		h.internalError(w, r, err, "list cart")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, l := range lines {
						encodePricedLine(e, l)
					}
				})
			})
		})
	})
}

func (h *Handler) updateCartLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid line id")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	quantity := 0
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "quantity" {
			v, err := d.Int()
			quantity = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	session := SessionFromContext(r.Context())
	if err := h.cart.UpdateQuantity(r.Context(), session.CustomerID, lineID, quantity); err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			writeError(w, http.StatusNotFound, "cart line not found")
			return
		}
		h.internalError(w, r, err, "update cart line")
		return
	}
	h.listCart(w, r)
}

func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid line id")
		return
	}

	session := SessionFromContext(r.Context())
	if err := h.cart.Remove(r.Context(), session.CustomerID, lineID); err != nil {
		h.internalError(w, r, err, "remove cart line")
		return
	}
	writeNoContent(w)
}

func (h *Handler) countCart(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	n, err := h.cart.Count(r.Context(), session.CustomerID)
	if err != nil {
		h.internalError(w, r, err, "count cart")
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("count", func(e *jx.Encoder) { e.Int(n) })
		})
	})
}

func writeOptionErrors(w http.ResponseWriter, verrs option.Errors) {
	writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(http.StatusUnprocessableEntity) })
			e.Field("message", func(e *jx.Encoder) { e.Str("invalid options") })
			e.Field("options", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, verr := range verrs {
						e.Obj(func(e *jx.Encoder) {
							e.Field("option_id", func(e *jx.Encoder) { e.Int64(verr.OptionID) })
							e.Field("option", func(e *jx.Encoder) { e.Str(verr.Option) })
							e.Field("reason", func(e *jx.Encoder) { e.Str(string(verr.Reason)) })
						})
					}
				})
			})
		})
	})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, op string) {
	zctx.From(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
