// Package settings exposes the tunable key/value configuration store used by
// the pricing and reward engines. Values are stored as strings and parsed on
// read; a malformed value falls back to the caller's default instead of
// failing the operation that needed it.
package settings

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

// Keys understood by the reward coupon generator.
const (
	KeyHighValueThreshold       = "highValueThreshold"
	KeyHighValueDiscountPercent = "highValueDiscountPercent"
	KeyLoyaltyOrderCount        = "loyaltyOrderCount"
	KeyLoyaltyDiscountPercent   = "loyaltyDiscountPercent"
)

// Defaults applied when a key is absent or unparseable.
var (
	DefaultHighValueThreshold       = decimal.NewFromInt(500)
	DefaultHighValueDiscountPercent = decimal.NewFromInt(10)
	DefaultLoyaltyOrderCount        = 3
	DefaultLoyaltyDiscountPercent   = decimal.NewFromInt(15)
)

// Repository provides raw access to stored setting values.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Provider reads settings with typed accessors.
type Provider struct {
	repo Repository
}

// NewProvider returns a Provider backed by the given repository.
func NewProvider(repo Repository) *Provider {
	return &Provider{repo: repo}
}

// String returns the raw value for key, or def when the key is absent or the
// lookup fails.
func (p *Provider) String(ctx context.Context, key, def string) string {
	v, ok, err := p.repo.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	return v
}

// Decimal returns the value for key parsed as a decimal, or def when the key
// is absent or malformed.
func (p *Provider) Decimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal {
	v, ok, err := p.repo.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

// Int returns the value for key parsed as an integer, or def when the key is
// absent or malformed.
func (p *Provider) Int(ctx context.Context, key string, def int) int {
	v, ok, err := p.repo.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Update writes a single setting.
func (p *Provider) Update(ctx context.Context, key, value string) error {
	return p.repo.Set(ctx, key, value)
}

// UpdateAll writes each key/value pair in turn, stopping at the first error.
func (p *Provider) UpdateAll(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if err := p.repo.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// DiscountSettings is the reward tuning snapshot exposed to the admin API.
type DiscountSettings struct {
	HighValueThreshold       decimal.Decimal `json:"highValueThreshold"`
	HighValueDiscountPercent decimal.Decimal `json:"highValueDiscountPercent"`
	LoyaltyOrderCount        int             `json:"loyaltyOrderCount"`
	LoyaltyDiscountPercent   decimal.Decimal `json:"loyaltyDiscountPercent"`
}

// Discounts returns the current reward tuning values with defaults applied.
func (p *Provider) Discounts(ctx context.Context) DiscountSettings {
	return DiscountSettings{
		HighValueThreshold:       p.Decimal(ctx, KeyHighValueThreshold, DefaultHighValueThreshold),
		HighValueDiscountPercent: p.Decimal(ctx, KeyHighValueDiscountPercent, DefaultHighValueDiscountPercent),
		LoyaltyOrderCount:        p.Int(ctx, KeyLoyaltyOrderCount, DefaultLoyaltyOrderCount),
		LoyaltyDiscountPercent:   p.Decimal(ctx, KeyLoyaltyDiscountPercent, DefaultLoyaltyDiscountPercent),
	}
}
