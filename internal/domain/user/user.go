package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// GuestEmailDomain is the synthetic domain for guest buyers who check out
// without an email address; the local part is their phone number.
const GuestEmailDomain = "guest.local"

// User is a buyer account. Guests synthesized at checkout have no password
// hash; reward issuance is gated on HasCredential.
type User struct {
	ID             string
	Email          string
	FullName       string
	PasswordHash   string
	EmailConfirmed bool
}

// HasCredential reports whether the account is a real registered user rather
// than an ephemeral guest record.
func (u *User) HasCredential() bool {
	return u.PasswordHash != ""
}

// GuestEmail derives the synthetic identity for a guest with no email.
func GuestEmail(phone string) string {
	return phone + "@" + GuestEmailDomain
}

// Directory provides the user operations the order engine consumes.
type Directory interface {
	GetByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	// HasAnyOrder reports whether the user has at least one order,
	// regardless of status.
	HasAnyOrder(ctx context.Context, userID string) (bool, error)
	// CountDeliveredOrders counts the user's orders in the DELIVERED state.
	CountDeliveredOrders(ctx context.Context, userID string) (int, error)
}
