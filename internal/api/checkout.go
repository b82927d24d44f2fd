package api

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/discount"
)

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	code, ok := h.decodeCode(w, r)
	if !ok {
		return
	}
	session := SessionFromContext(r.Context())
	if err := h.discount.ApplyCoupon(r.Context(), session.CustomerID, code); err != nil {
		h.discountError(w, r, err, "apply coupon")
		return
	}
	writeNoContent(w)
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if err := h.discount.RemoveCoupon(r.Context(), session.CustomerID); err != nil {
		h.internalError(w, r, err, "remove coupon")
		return
	}
	writeNoContent(w)
}

func (h *Handler) applyVoucher(w http.ResponseWriter, r *http.Request) {
	code, ok := h.decodeCode(w, r)
	if !ok {
		return
	}
	session := SessionFromContext(r.Context())
	if err := h.discount.ApplyVoucher(r.Context(), session.CustomerID, code); err != nil {
		h.discountError(w, r, err, "apply voucher")
		return
	}
	writeNoContent(w)
}

func (h *Handler) removeVoucher(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if err := h.discount.RemoveVoucher(r.Context(), session.CustomerID); err != nil {
		h.internalError(w, r, err, "remove voucher")
		return
	}
	writeNoContent(w)
}

func (h *Handler) applyReward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	var points int64
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "points" {
			v, err := d.Int64()
			points = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	session := SessionFromContext(r.Context())
	if err := h.discount.ApplyReward(r.Context(), session.CustomerID, session.CustomerGroupID, points); err != nil {
		h.discountError(w, r, err, "apply reward")
		return
	}
	writeNoContent(w)
}

func (h *Handler) removeReward(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if err := h.discount.RemoveReward(r.Context(), session.CustomerID); err != nil {
		h.internalError(w, r, err, "remove reward")
		return
	}
	writeNoContent(w)
}

func (h *Handler) reviewCheckout(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	rev, err := h.checkout.Review(r.Context(), session.CustomerID, session.CustomerGroupID)
	if err != nil {
		h.internalError(w, r, err, "review checkout")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, l := range rev.Lines {
						encodePricedLine(e, l)
					}
				})
			})
			e.Field("totals", func(e *jx.Encoder) { encodeTotals(e, rev.Totals) })
			e.Field("total", func(e *jx.Encoder) { e.Str(rev.Total.StringFixed(2)) })
		})
	})
}

func (h *Handler) setShippingAddress(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	addr, err := decodeAddress(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	session := SessionFromContext(r.Context())
	if err := h.checkout.SetShippingAddress(r.Context(), session.CustomerID, addr); err != nil {
		h.internalError(w, r, err, "set shipping address")
		return
	}
	writeNoContent(w)
}

func (h *Handler) setShippingMethod(w http.ResponseWriter, r *http.Request) {
	h.setMethod(w, r, h.checkout.SetShippingMethod, "set shipping method")
}

func (h *Handler) setPaymentMethod(w http.ResponseWriter, r *http.Request) {
	h.setMethod(w, r, h.checkout.SetPaymentMethod, "set payment method")
}

func (h *Handler) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	snap, err := h.checkout.Confirm(r.Context(), session.CustomerID, session.CustomerGroupID)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, http.StatusUnprocessableEntity, "cart is empty")
		case errors.Is(err, checkout.ErrMissingShippingAddress):
			writeError(w, http.StatusUnprocessableEntity, "shipping address required")
		case errors.Is(err, checkout.ErrMissingShippingMethod):
			writeError(w, http.StatusUnprocessableEntity, "shipping method required")
		default:
			h.internalError(w, r, err, "confirm checkout")
		}
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeSnapshot(e, snap)
	})
}

func (h *Handler) setMethod(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, customerID int64, m checkout.Method) error, op string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	var m checkout.Method
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := d.Str()
			m.Code = v
			return err
		case "title":
			v, err := d.Str()
			m.Title = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if m.Code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return
	}

	session := SessionFromContext(r.Context())
	if err := set(r.Context(), session.CustomerID, m); err != nil {
		h.internalError(w, r, err, op)
		return
	}
	writeNoContent(w)
}

// decodeCode reads a {"code": "..."} body, writing the error response
// itself when the body is unusable.
func (h *Handler) decodeCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return "", false
	}
	var code string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "code" {
			v, err := d.Str()
			code = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return "", false
	}
	if code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return "", false
	}
	return code, true
}

func decodeAddress(data []byte) (checkout.Address, error) {
	var addr checkout.Address
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		dst := map[string]*string{
			"firstname": &addr.FirstName,
			"lastname":  &addr.LastName,
			"company":   &addr.Company,
			"address_1": &addr.Address1,
			"address_2": &addr.Address2,
			"city":      &addr.City,
			"postcode":  &addr.Postcode,
			"zone":      &addr.Zone,
			"country":   &addr.Country,
		}[key]
		if dst == nil {
			return d.Skip()
		}
		v, err := d.Str()
		*dst = v
		return err
	})
	return addr, err
}

// discountError maps ledger rejections to client responses.
func (h *Handler) discountError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, discount.ErrCouponNotFound),
		errors.Is(err, discount.ErrVoucherNotFound):
		writeError(w, http.StatusUnprocessableEntity, "code not found")
	case errors.Is(err, discount.ErrCouponInactive):
		writeError(w, http.StatusUnprocessableEntity, "coupon is not active")
	case errors.Is(err, discount.ErrVoucherExhausted):
		writeError(w, http.StatusUnprocessableEntity, "voucher balance exhausted")
	case errors.Is(err, discount.ErrVoucherOrderIncomplete):
		writeError(w, http.StatusUnprocessableEntity, "voucher order not completed")
	case errors.Is(err, discount.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "insufficient point balance")
	case errors.Is(err, discount.ErrExceedsCartEligiblePoints):
		writeError(w, http.StatusUnprocessableEntity, "redemption exceeds cart eligible points")
	default:
		h.internalError(w, r, err, op)
	}
}
