package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soukly/storefront/internal/domain/order"
)

const (
	// Conditional decrement: zero rows affected means the stock moved under
	// us since the pre-check, and the whole checkout rolls back.
	decrementStockSQL = `UPDATE products SET quantity = quantity - $2
		WHERE id = $1 AND quantity >= $2`

	restoreStockSQL = `UPDATE products SET quantity = quantity + $2 WHERE id = $1`

	// Conditional increment: guards the usage limit at the storage layer so
	// two checkouts racing on the last use serialize on the row.
	incrementCouponUsesSQL = `UPDATE coupons SET times_used = times_used + 1
		WHERE id = $1 AND (usage_limit = 0 OR times_used < usage_limit)`

	insertOrderSQL = `INSERT INTO orders (id, user_id, client_name, city, address, phone,
		status, deleted, discount_amount, shipping_cost, coupon_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, product_name,
		unit_price, quantity, variant_label, image_url)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`

	orderColumns = `o.id, o.user_id, o.client_name, o.city, o.address, o.phone,
		o.status, o.deleted, o.discount_amount, o.shipping_cost,
		COALESCE(o.coupon_id, ''), COALESCE(c.code, ''), o.created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + `
		FROM orders o LEFT JOIN coupons c ON c.id = o.coupon_id WHERE o.id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders o LEFT JOIN coupons c ON c.id = o.coupon_id
		WHERE o.deleted = $1 ORDER BY o.created_at DESC`

	listOrdersByUserSQL = `SELECT ` + orderColumns + `
		FROM orders o LEFT JOIN coupons c ON c.id = o.coupon_id
		WHERE o.user_id = $1 AND o.deleted = FALSE ORDER BY o.created_at DESC`

	listOrderItemsSQL = `SELECT id, order_id, COALESCE(product_id, ''), product_name,
		unit_price, quantity, variant_label, image_url
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	lockOrderStatusSQL = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	setOrderDeletedSQL = `UPDATE orders SET deleted = $2 WHERE id = $1`

	purgeOrdersSQL = `DELETE FROM orders`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, its lines, the stock decrements and the coupon
// usage increment as a single transaction. Any failure rolls everything back,
// including decrements from earlier lines.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkout: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, l := range o.Lines {
		if l.ProductID == "" {
			continue
		}
		tag, err := tx.Exec(ctx, decrementStockSQL, l.ProductID, l.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for %q: %w", l.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrapf(order.ErrStockConflict, "product %s", l.ProductID)
		}
	}

	if o.CouponID != "" {
		tag, err := tx.Exec(ctx, incrementCouponUsesSQL, o.CouponID)
		if err != nil {
			return fmt.Errorf("incrementing coupon uses: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrapf(order.ErrCouponUseConflict, "coupon %s", o.CouponCode)
		}
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.ClientName, o.City, o.Address, o.Phone,
		string(o.Status), o.Deleted, o.DiscountAmount, o.ShippingCost, o.CouponID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, l := range o.Lines {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			l.ID, o.ID, l.ProductID, l.ProductName,
			l.UnitPrice, l.Quantity, l.VariantLabel, l.ImageURL,
		)
		if err != nil {
			return fmt.Errorf("creating order line %q: %w", l.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns a single order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.attachLines(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns orders filtered by the soft-delete flag, newest first.
func (r *OrderRepository) List(ctx context.Context, deleted bool) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, deleted)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return r.collectWithLines(ctx, rows)
}

// ListByUser returns a user's non-deleted orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return r.collectWithLines(ctx, rows)
}

// Transition moves the order to next under a row lock. Repeating the current
// status reports changed=false without writing. Transitioning into CANCELED
// restores the stock decremented at checkout in the same transaction.
func (r *OrderRepository) Transition(ctx context.Context, id string, next order.Status) (*order.Order, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	if err := tx.QueryRow(ctx, lockOrderStatusSQL, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, order.ErrNotFound
		}
		return nil, false, fmt.Errorf("locking order %q: %w", id, err)
	}

	changed, err := order.ValidateTransition(order.Status(current), next)
	if err != nil {
		return nil, false, err
	}

	if changed {
		if _, err := tx.Exec(ctx, updateOrderStatusSQL, id, string(next)); err != nil {
			return nil, false, fmt.Errorf("updating order %q status: %w", id, err)
		}
		if next == order.StatusCanceled {
			if err := r.restoreStock(ctx, tx, id); err != nil {
				return nil, false, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing transition for %q: %w", id, err)
	}

	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return o, changed, nil
}

// restoreStock returns every catalog-backed line's quantity to the shelf.
func (r *OrderRepository) restoreStock(ctx context.Context, tx pgx.Tx, orderID string) error {
	rows, err := tx.Query(ctx, listOrderItemsSQL, []string{orderID})
	if err != nil {
		return fmt.Errorf("loading lines for cancel of %q: %w", orderID, err)
	}
	lines, err := pgx.CollectRows(rows, scanOrderLine)
	if err != nil {
		return fmt.Errorf("loading lines for cancel of %q: %w", orderID, err)
	}

	for _, l := range lines {
		if l.ProductID == "" {
			continue
		}
		if _, err := tx.Exec(ctx, restoreStockSQL, l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("restoring stock for %q: %w", l.ProductID, err)
		}
	}
	return nil
}

// SetDeleted flips the soft-delete flag.
func (r *OrderRepository) SetDeleted(ctx context.Context, id string, deleted bool) error {
	tag, err := r.pool.Exec(ctx, setOrderDeletedSQL, id, deleted)
	if err != nil {
		return fmt.Errorf("setting deleted=%t on order %q: %w", deleted, id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// PurgeAll hard-deletes all orders; lines go with them via cascade.
func (r *OrderRepository) PurgeAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, purgeOrdersSQL); err != nil {
		return fmt.Errorf("purging orders: %w", err)
	}
	return nil
}

func (r *OrderRepository) collectWithLines(ctx context.Context, rows pgx.Rows) ([]order.Order, error) {
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}
	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, scanOrderLine)
	if err != nil {
		return fmt.Errorf("scanning order lines: %w", err)
	}
	for _, l := range lines {
		o := byID[l.orderID]
		if o != nil {
			o.Lines = append(o.Lines, l.Line)
		}
	}
	return nil
}

type scannedLine struct {
	order.Line
	orderID string
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.ClientName, &o.City, &o.Address, &o.Phone,
		&status, &o.Deleted, &o.DiscountAmount, &o.ShippingCost,
		&o.CouponID, &o.CouponCode, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (scannedLine, error) {
	var l scannedLine
	err := row.Scan(
		&l.ID, &l.orderID, &l.ProductID, &l.ProductName,
		&l.UnitPrice, &l.Quantity, &l.VariantLabel, &l.ImageURL,
	)
	return l, err
}
