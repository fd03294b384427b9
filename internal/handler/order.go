package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/soukly/storefront/internal/domain/order"
)

type lineItemJSON struct {
	ProductID    string           `json:"productId,omitempty"`
	ProductName  string           `json:"productName,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Quantity     int              `json:"quantity"`
	VariantLabel string           `json:"variantLabel,omitempty"`
	ImageURL     string           `json:"imageUrl,omitempty"`
}

type checkoutJSON struct {
	UserID     string         `json:"userId,omitempty"`
	Email      string         `json:"email,omitempty"`
	ClientName string         `json:"clientFullName"`
	City       string         `json:"city"`
	Address    string         `json:"address"`
	Phone      string         `json:"phoneNumber"`
	CouponCode string         `json:"couponCode,omitempty"`
	Items      []lineItemJSON `json:"items"`
}

type orderLineJSON struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"productId,omitempty"`
	ProductName  string          `json:"productName"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	VariantLabel string          `json:"variantLabel,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
}

type orderJSON struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	ClientName     string          `json:"clientFullName"`
	City           string          `json:"city"`
	Address        string          `json:"address"`
	Phone          string          `json:"phoneNumber"`
	Status         string          `json:"status"`
	Deleted        bool            `json:"deleted,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	Total          decimal.Decimal `json:"total"`
	CouponCode     string          `json:"couponCode,omitempty"`
	Lines          []orderLineJSON `json:"items"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func toOrderJSON(o *order.Order) orderJSON {
	lines := make([]orderLineJSON, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineJSON{
			ID:           l.ID,
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			VariantLabel: l.VariantLabel,
			ImageURL:     l.ImageURL,
		}
	}
	return orderJSON{
		ID:             o.ID,
		UserID:         o.UserID,
		ClientName:     o.ClientName,
		City:           o.City,
		Address:        o.Address,
		Phone:          o.Phone,
		Status:         string(o.Status),
		Deleted:        o.Deleted,
		Subtotal:       o.Subtotal(),
		DiscountAmount: o.DiscountAmount,
		ShippingCost:   o.ShippingCost,
		Total:          o.Total(),
		CouponCode:     o.CouponCode,
		Lines:          lines,
		CreatedAt:      o.CreatedAt,
	}
}

// toCheckoutRequest converts the wire payload into the domain request,
// classifying each item as catalog-backed or direct.
func toCheckoutRequest(req checkoutJSON) order.CheckoutRequest {
	lines := make([]order.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID != "" {
			lines = append(lines, order.CatalogLine{
				ProductID:     it.ProductID,
				Quantity:      it.Quantity,
				VariantLabel:  it.VariantLabel,
				PriceOverride: it.Price,
				ImageURL:      it.ImageURL,
			})
			continue
		}
		var price decimal.Decimal
		if it.Price != nil {
			price = *it.Price
		}
		lines = append(lines, order.DirectLine{
			Name:         it.ProductName,
			UnitPrice:    price,
			Quantity:     it.Quantity,
			VariantLabel: it.VariantLabel,
			ImageURL:     it.ImageURL,
		})
	}
	return order.CheckoutRequest{
		UserID:     req.UserID,
		GuestEmail: req.Email,
		ClientName: req.ClientName,
		City:       req.City,
		Address:    req.Address,
		Phone:      req.Phone,
		CouponCode: req.CouponCode,
		Lines:      lines,
	}
}

// checkout places an order for an authenticated user.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutJSON
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId required")
		return
	}
	h.placeOrder(w, r, toCheckoutRequest(req))
}

// guestCheckout places an order for a guest, resolving or creating the buyer
// from the contact details.
func (h *Handler) guestCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutJSON
	if !decodeBody(w, r, &req) {
		return
	}
	req.UserID = ""
	if req.Email == "" && req.Phone == "" {
		respondError(w, http.StatusBadRequest, "email or phoneNumber required")
		return
	}
	h.placeOrder(w, r, toCheckoutRequest(req))
}

// directCheckout places a landing-page order with explicit line details on
// behalf of a known user.
func (h *Handler) directCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutJSON
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId required")
		return
	}
	h.placeOrder(w, r, toCheckoutRequest(req))
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, req order.CheckoutRequest) {
	o, err := h.orders.Checkout(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderJSON(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderJSON(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	h.respondOrderList(w, r)(h.orders.List(r.Context()))
}

func (h *Handler) listDeletedOrders(w http.ResponseWriter, r *http.Request) {
	h.respondOrderList(w, r)(h.orders.ListDeleted(r.Context()))
}

func (h *Handler) userOrders(w http.ResponseWriter, r *http.Request) {
	h.respondOrderList(w, r)(h.orders.ListByUser(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) respondOrderList(w http.ResponseWriter, r *http.Request) func([]order.Order, error) {
	return func(orders []order.Order, err error) {
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		out := make([]orderJSON, len(orders))
		for i := range orders {
			out[i] = toOrderJSON(&orders[i])
		}
		respondJSON(w, http.StatusOK, out)
	}
}

type statusUpdateJSON struct {
	Status string `json:"status"`
}

// updateStatus runs a lifecycle transition.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateJSON
	if !decodeBody(w, r, &req) {
		return
	}
	next, err := order.ParseStatus(req.Status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	o, err := h.lifecycle.UpdateStatus(r.Context(), chi.URLParam(r, "id"), next)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderJSON(o))
}

func (h *Handler) softDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restoreOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Restore(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) purgeOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.PurgeAll(r.Context()); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
