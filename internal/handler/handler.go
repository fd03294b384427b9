// Package handler exposes the order engine over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/soukly/storefront/internal/domain/coupon"
	"github.com/soukly/storefront/internal/domain/order"
	"github.com/soukly/storefront/internal/domain/product"
	"github.com/soukly/storefront/internal/domain/settings"
	"github.com/soukly/storefront/internal/domain/user"
)

// Handler wires the HTTP routes to the domain services.
type Handler struct {
	orders    *order.Service
	lifecycle *order.Lifecycle
	products  product.Repository
	coupons   coupon.Repository
	settings  *settings.Provider
	admin     func(http.Handler) http.Handler
}

// NewHandler constructs a Handler. admin is the authentication middleware
// applied to privileged routes.
func NewHandler(
	orders *order.Service,
	lifecycle *order.Lifecycle,
	products product.Repository,
	coupons coupon.Repository,
	sp *settings.Provider,
	admin func(http.Handler) http.Handler,
) *Handler {
	return &Handler{
		orders:    orders,
		lifecycle: lifecycle,
		products:  products,
		coupons:   coupons,
		settings:  sp,
		admin:     admin,
	}
}

// Routes builds the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/coupons/{code}/validate", h.validateCoupon)

	r.Post("/orders", h.checkout)
	r.Post("/orders/guest", h.guestCheckout)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/users/{id}/orders", h.userOrders)

	r.Group(func(r chi.Router) {
		r.Use(h.admin)
		r.Post("/orders/direct", h.directCheckout)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/deleted", h.listDeletedOrders)
		r.Patch("/orders/{id}/status", h.updateStatus)
		r.Delete("/orders/{id}", h.softDeleteOrder)
		r.Post("/orders/{id}/restore", h.restoreOrder)
		r.Delete("/orders", h.purgeOrders)
		r.Get("/settings/discounts", h.discountSettings)
		r.Put("/settings", h.updateSettings)
	})

	return r
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Code: status, Message: msg})
}

// respondDomainError maps domain errors to HTTP responses. Unknown errors
// are logged and masked as 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty    *order.InvalidQuantityError
		notFound      *order.ProductNotFoundError
		noStock       *order.InsufficientStockError
		badTransition *order.InvalidTransitionError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrDirectLineDetails),
		errors.Is(err, order.ErrUnknownStatus),
		errors.As(err, &invalidQty):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.As(err, &noStock),
		errors.Is(err, order.ErrStockConflict):
		respondError(w, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrCouponUseConflict):
		respondError(w, http.StatusUnprocessableEntity, coupon.ErrUsageLimitReached.Error())

	case coupon.IsInvalid(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, order.ErrEmailNotConfirmed),
		errors.As(err, &badTransition):
		respondError(w, http.StatusConflict, err.Error())

	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
