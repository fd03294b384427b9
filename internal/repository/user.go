package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soukly/storefront/internal/domain/user"
)

const (
	getUserByIDSQL = `SELECT id, email, full_name, COALESCE(password_hash, ''), email_confirmed
		FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT id, email, full_name, COALESCE(password_hash, ''), email_confirmed
		FROM users WHERE email = $1`

	insertUserSQL = `INSERT INTO users (id, email, full_name, password_hash, email_confirmed)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`

	hasAnyOrderSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE user_id = $1)`

	countDeliveredSQL = `SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status = 'DELIVERED'`
)

var _ user.Directory = (*UserRepository)(nil)

// UserRepository implements user.Directory backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, getUserByEmailSQL, email)
}

// Create persists a new user. Empty password hashes are stored as NULL so
// guest accounts remain credential-less.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, insertUserSQL,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.EmailConfirmed,
	)
	if err != nil {
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// HasAnyOrder reports whether the user has placed at least one order.
func (r *UserRepository) HasAnyOrder(ctx context.Context, userID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, hasAnyOrderSQL, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking orders for user %q: %w", userID, err)
	}
	return exists, nil
}

// CountDeliveredOrders counts the user's delivered orders.
func (r *UserRepository) CountDeliveredOrders(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countDeliveredSQL, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting delivered orders for user %q: %w", userID, err)
	}
	return n, nil
}

func (r *UserRepository) getOne(ctx context.Context, query, arg string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.EmailConfirmed)
	return u, err
}
