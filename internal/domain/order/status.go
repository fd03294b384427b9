package order

import "github.com/go-faster/errors"

// Status is the order lifecycle state. PREPARING is initial; DELIVERED and
// CANCELED are terminal. The soft-delete flag is orthogonal to status.
type Status string

const (
	StatusPreparing  Status = "PREPARING"
	StatusDelivering Status = "DELIVERING"
	StatusDelivered  Status = "DELIVERED"
	StatusCanceled   Status = "CANCELED"
)

// ErrUnknownStatus is returned by ParseStatus for unrecognized values.
var ErrUnknownStatus = errors.New("unknown order status")

// ParseStatus converts a wire value to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPreparing, StatusDelivering, StatusDelivered, StatusCanceled:
		return Status(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
	}
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

// InvalidTransitionError indicates a status change the lifecycle does not
// allow.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return "invalid status transition " + string(e.From) + " -> " + string(e.To)
}

// ValidateTransition applies the lifecycle rules. Repeating the current
// status is a no-op (changed=false), so retried delivery notifications stay
// idempotent. Allowed moves: PREPARING -> DELIVERING -> DELIVERED, and
// PREPARING|DELIVERING -> CANCELED.
func ValidateTransition(from, to Status) (changed bool, err error) {
	if from == to {
		return false, nil
	}
	allowed := false
	switch from {
	case StatusPreparing:
		allowed = to == StatusDelivering || to == StatusCanceled
	case StatusDelivering:
		allowed = to == StatusDelivered || to == StatusCanceled
	}
	if !allowed {
		return false, &InvalidTransitionError{From: from, To: to}
	}
	return true, nil
}
