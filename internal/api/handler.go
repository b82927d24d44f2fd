// Package api exposes the cart and checkout services over HTTP with
// JSON envelopes.
package api

import (
	"context"
	"net/http"

	"github.com/xenking/storefront-checkout/internal/domain/auth"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/option"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

// CartService is the cart surface the handlers need.
type CartService interface {
	Add(ctx context.Context, customerID, productID int64, quantity int, sel option.Selection, subscriptionPlanID int64) error
	Priced(ctx context.Context, customerID, customerGroupID int64) ([]pricing.PricedLine, error)
	UpdateQuantity(ctx context.Context, customerID, lineID int64, quantity int) error
	Remove(ctx context.Context, customerID, lineID int64) error
	Count(ctx context.Context, customerID int64) (int, error)
}

// DiscountService is the discount ledger surface the handlers need.
type DiscountService interface {
	ApplyCoupon(ctx context.Context, customerID int64, code string) error
	RemoveCoupon(ctx context.Context, customerID int64) error
	ApplyVoucher(ctx context.Context, customerID int64, code string) error
	RemoveVoucher(ctx context.Context, customerID int64) error
	ApplyReward(ctx context.Context, customerID, customerGroupID, points int64) error
	RemoveReward(ctx context.Context, customerID int64) error
}

// CheckoutService is the checkout surface the handlers need.
type CheckoutService interface {
	Review(ctx context.Context, customerID, customerGroupID int64) (*checkout.Review, error)
	SetShippingAddress(ctx context.Context, customerID int64, addr checkout.Address) error
	SetShippingMethod(ctx context.Context, customerID int64, m checkout.Method) error
	SetPaymentMethod(ctx context.Context, customerID int64, m checkout.Method) error
	Confirm(ctx context.Context, customerID, customerGroupID int64) (*checkout.Snapshot, error)
}

// Handler serves the storefront API, delegating to the injected domain
// services. Every route requires an authenticated customer session.
type Handler struct {
	cart     CartService
	discount DiscountService
	checkout CheckoutService
	sessions auth.Repository
	pepper   []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
// pepper is the HMAC key for session token hashing.
func NewHandler(cart CartService, discount DiscountService, checkout CheckoutService, sessions auth.Repository, pepper []byte) *Handler {
	return &Handler{
		cart:     cart,
		discount: discount,
		checkout: checkout,
		sessions: sessions,
		pepper:   pepper,
	}
}

// Routes registers the API routes on mux. All handlers are wrapped in
// the session authentication middleware.
func (h *Handler) Routes(mux *http.ServeMux) {
	auth := h.authenticate

	mux.Handle("GET /api/cart", auth(h.listCart))
	mux.Handle("POST /api/cart", auth(h.addToCart))
	mux.Handle("PUT /api/cart/{id}", auth(h.updateCartLine))
	mux.Handle("DELETE /api/cart/{id}", auth(h.removeCartLine))
	mux.Handle("GET /api/cart/count", auth(h.countCart))

	mux.Handle("POST /api/coupon", auth(h.applyCoupon))
	mux.Handle("DELETE /api/coupon", auth(h.removeCoupon))
	mux.Handle("POST /api/voucher", auth(h.applyVoucher))
	mux.Handle("DELETE /api/voucher", auth(h.removeVoucher))
	mux.Handle("POST /api/reward", auth(h.applyReward))
	mux.Handle("DELETE /api/reward", auth(h.removeReward))

	mux.Handle("GET /api/checkout", auth(h.reviewCheckout))
	mux.Handle("PUT /api/checkout/address", auth(h.setShippingAddress))
	mux.Handle("PUT /api/checkout/shipping", auth(h.setShippingMethod))
	mux.Handle("PUT /api/checkout/payment", auth(h.setPaymentMethod))
	mux.Handle("POST /api/checkout/confirm", auth(h.confirmCheckout))
}
