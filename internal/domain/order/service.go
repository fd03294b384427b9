package order

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/soukly/storefront/internal/domain/coupon"
	"github.com/soukly/storefront/internal/domain/product"
	"github.com/soukly/storefront/internal/domain/shipping"
	"github.com/soukly/storefront/internal/domain/user"
)

// LineInput is the closed set of checkout line shapes: a cart line backed by
// a catalog product, or a direct line carrying its own name and price.
type LineInput interface {
	lineInput()
	lineQuantity() int
}

// CatalogLine orders units of a catalog product. PriceOverride, when set,
// replaces the product's current price (pack and variant pricing); ImageURL,
// when set, replaces the product's first catalog image on the snapshot.
type CatalogLine struct {
	ProductID     string
	Quantity      int
	VariantLabel  string
	PriceOverride *decimal.Decimal
	ImageURL      string
}

func (CatalogLine) lineInput() {}
func (l CatalogLine) lineQuantity() int { return l.Quantity }

// DirectLine orders an item with no catalog backing (landing-page offers).
// Name and a positive UnitPrice are required; no stock check applies.
type DirectLine struct {
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     int
	VariantLabel string
	ImageURL     string
}

func (DirectLine) lineInput() {}
func (l DirectLine) lineQuantity() int { return l.Quantity }

// CheckoutRequest is the input for placing an order. UserID selects the
// authenticated path; when empty the buyer is resolved or created from
// GuestEmail, falling back to a synthetic identity derived from Phone.
type CheckoutRequest struct {
	UserID     string
	GuestEmail string
	ClientName string
	City       string
	Address    string
	Phone      string
	CouponCode string
	Lines      []LineInput
}

// ConfirmationSender delivers the order confirmation notification.
// Best-effort: failures are logged, never surfaced to the buyer.
type ConfirmationSender interface {
	Send(ctx context.Context, o *Order) error
}

// Service assembles and persists orders.
type Service struct {
	products product.Repository
	coupons  coupon.Repository
	orders   Repository
	users    user.Directory
	shipping shipping.Calculator
	notifier ConfirmationSender
	now      func() time.Time
}

// NewService creates the checkout service with its domain dependencies.
func NewService(
	products product.Repository,
	coupons coupon.Repository,
	orders Repository,
	users user.Directory,
	calc shipping.Calculator,
	notifier ConfirmationSender,
) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
		users:    users,
		shipping: calc,
		notifier: notifier,
		now:      time.Now,
	}
}

// Checkout validates the request, assembles the order lines, prices the
// order (shipping, optional coupon), and persists everything atomically.
// Stock decrements and the coupon usage increment commit with the order; a
// failure on any line persists nothing.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	for i, in := range req.Lines {
		if in.lineQuantity() <= 0 {
			return nil, &InvalidQuantityError{Ref: lineRef(in, i)}
		}
	}

	buyer, err := s.resolveBuyer(ctx, req)
	if err != nil {
		return nil, err
	}

	lines, items, err := s.assembleLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:             uuid.New().String(),
		UserID:         buyer.ID,
		ClientName:     req.ClientName,
		City:           req.City,
		Address:        req.Address,
		Phone:          req.Phone,
		Status:         StatusPreparing,
		DiscountAmount: decimal.Zero,
		Lines:          lines,
		CreatedAt:      s.now(),
	}
	o.ShippingCost = s.shipping.Cost(req.City, o.TotalQuantity(), o.Subtotal())

	if req.CouponCode != "" {
		if err := s.applyCoupon(ctx, o, buyer, req.CouponCode, items); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.sendConfirmation(ctx, o)
	return o, nil
}

// resolveBuyer returns the ordering user. Authenticated buyers must have a
// confirmed email; guests are resolved or created by email, keyed by
// phone@guest.local when no email was supplied. Synthetic guests carry no
// credential.
func (s *Service) resolveBuyer(ctx context.Context, req CheckoutRequest) (*user.User, error) {
	if req.UserID != "" {
		u, err := s.users.GetByID(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if !u.EmailConfirmed {
			return nil, ErrEmailNotConfirmed
		}
		return u, nil
	}

	email := req.GuestEmail
	if email == "" {
		email = user.GuestEmail(req.Phone)
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, errors.Wrap(err, "find guest user")
	}

	u = &user.User{
		ID:             uuid.New().String(),
		Email:          email,
		FullName:       req.ClientName,
		EmailConfirmed: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create guest user")
	}
	return u, nil
}

// assembleLines resolves every input line to a persisted Line with its price
// and image snapshotted, plus the evaluator's view of the cart. Catalog
// products are fetched in a single batch; availability is pre-checked here
// and enforced again by the conditional update in the checkout transaction.
func (s *Service) assembleLines(ctx context.Context, inputs []LineInput) ([]Line, []coupon.Item, error) {
	var ids []string
	for _, in := range inputs {
		if cl, ok := in.(CatalogLine); ok {
			ids = append(ids, cl.ProductID)
		}
	}

	productMap := make(map[string]product.Product, len(ids))
	if len(ids) > 0 {
		fetched, err := s.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, nil, errors.Wrap(err, "get products")
		}
		for _, p := range fetched {
			productMap[p.ID] = p
		}
	}

	lines := make([]Line, 0, len(inputs))
	items := make([]coupon.Item, 0, len(inputs))
	for _, in := range inputs {
		switch l := in.(type) {
		case CatalogLine:
			p, ok := productMap[l.ProductID]
			if !ok {
				return nil, nil, &ProductNotFoundError{ProductID: l.ProductID}
			}
			if p.Quantity < l.Quantity {
				return nil, nil, &InsufficientStockError{ProductID: p.ID, Name: p.Name}
			}

			price := p.Price
			if l.PriceOverride != nil {
				price = *l.PriceOverride
			}
			image := l.ImageURL
			if image == "" {
				image = p.FirstImage()
			}

			lines = append(lines, Line{
				ID:           uuid.New().String(),
				ProductID:    p.ID,
				ProductName:  p.Name,
				UnitPrice:    price,
				Quantity:     l.Quantity,
				VariantLabel: l.VariantLabel,
				ImageURL:     image,
			})
			items = append(items, coupon.Item{
				ProductID: p.ID,
				Category:  p.Category,
				Price:     price,
				Quantity:  l.Quantity,
			})
		case DirectLine:
			if l.Name == "" || !l.UnitPrice.IsPositive() {
				return nil, nil, ErrDirectLineDetails
			}
			lines = append(lines, Line{
				ID:           uuid.New().String(),
				ProductName:  l.Name,
				UnitPrice:    l.UnitPrice,
				Quantity:     l.Quantity,
				VariantLabel: l.VariantLabel,
				ImageURL:     l.ImageURL,
			})
			items = append(items, coupon.Item{
				Price:    l.UnitPrice,
				Quantity: l.Quantity,
			})
		}
	}
	return lines, items, nil
}

// applyCoupon validates the code against the assembled cart and attaches the
// computed discount to the order. The usage counter increment itself happens
// in the checkout transaction.
func (s *Service) applyCoupon(ctx context.Context, o *Order, buyer *user.User, code string, items []coupon.Item) error {
	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	// Buyer-scoped coupons (rewards) are invisible to everyone else.
	if c.UserID != "" && c.UserID != buyer.ID {
		return coupon.ErrNotFound
	}

	hasPrior, err := s.users.HasAnyOrder(ctx, buyer.ID)
	if err != nil {
		return errors.Wrap(err, "check prior orders")
	}

	eval, err := coupon.Evaluate(c, items, hasPrior, s.now())
	if err != nil {
		return err
	}

	o.DiscountAmount = eval.Discount
	if eval.FreeShipping {
		o.ShippingCost = decimal.Zero
	}
	o.CouponID = c.ID
	o.CouponCode = c.Code
	return nil
}

// sendConfirmation notifies the buyer off the request path. The checkout has
// already committed; a send failure is logged and otherwise ignored.
func (s *Service) sendConfirmation(ctx context.Context, o *Order) {
	lg := zctx.From(ctx)
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, 10*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, o); err != nil {
			lg.Error("Order confirmation failed",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
		}
	}()
}

// GetByID returns a single order.
func (s *Service) GetByID(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns all non-deleted orders.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx, false)
}

// ListDeleted returns soft-deleted orders.
func (s *Service) ListDeleted(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx, true)
}

// ListByUser returns a user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// SoftDelete hides an order from default listings without touching status.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	return s.orders.SetDeleted(ctx, id, true)
}

// Restore clears an order's soft-delete flag.
func (s *Service) Restore(ctx context.Context, id string) error {
	return s.orders.SetDeleted(ctx, id, false)
}

// PurgeAll hard-deletes every order. Admin bulk maintenance only.
func (s *Service) PurgeAll(ctx context.Context) error {
	return s.orders.PurgeAll(ctx)
}

func lineRef(in LineInput, i int) string {
	switch l := in.(type) {
	case CatalogLine:
		return l.ProductID
	case DirectLine:
		if l.Name != "" {
			return l.Name
		}
	}
	return "#" + strconv.Itoa(i)
}
