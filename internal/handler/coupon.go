package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/soukly/storefront/internal/domain/coupon"
)

type couponPreviewJSON struct {
	Valid         bool            `json:"valid"`
	Reason        string          `json:"reason,omitempty"`
	Code          string          `json:"code"`
	Name          string          `json:"name,omitempty"`
	Type          string          `json:"type,omitempty"`
	Value         decimal.Decimal `json:"value"`
	MinPurchase   decimal.Decimal `json:"minPurchase"`
	FirstTimeOnly bool            `json:"firstTimeOnly,omitempty"`
	ExpiresAt     time.Time       `json:"expiresAt,omitempty"`
}

// validateCoupon previews a coupon before checkout. Only expiry and usage
// limit can be judged without a cart; cart-dependent checks run at checkout.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	c, err := h.coupons.FindByCode(r.Context(), code)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := couponPreviewJSON{
		Valid:         true,
		Code:          c.Code,
		Name:          c.Name,
		Type:          string(c.Type),
		Value:         c.Value,
		MinPurchase:   c.MinPurchase,
		FirstTimeOnly: c.FirstTimeOnly,
		ExpiresAt:     c.ExpiresAt,
	}
	if err := coupon.ValidatePreview(c, time.Now()); err != nil {
		resp.Valid = false
		resp.Reason = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}
