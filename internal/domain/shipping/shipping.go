// Package shipping computes delivery costs from the destination city, the
// total unit count and the order subtotal.
package shipping

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Calculator holds the shipping tariff. Cost is a pure function of its
// inputs; the zero quantity and free-shipping short circuits are evaluated
// before any zone lookup.
type Calculator struct {
	FreeThreshold decimal.Decimal
	StandardBase  decimal.Decimal
	RemoteBase    decimal.Decimal
	PerExtraUnit  decimal.Decimal
	MaxCost       decimal.Decimal
	RemoteZones   []string
}

// Default returns the production tariff. Remote-zone orders start at the cap,
// so remote shipping is always the flat maximum.
func Default() Calculator {
	return Calculator{
		FreeThreshold: decimal.NewFromInt(500),
		StandardBase:  decimal.NewFromInt(25),
		RemoteBase:    decimal.NewFromInt(45),
		PerExtraUnit:  decimal.NewFromInt(10),
		MaxCost:       decimal.NewFromInt(45),
		RemoteZones:   []string{"dakhla", "laayoune", "smara", "boujdour"},
	}
}

// Cost returns the shipping cost for an order going to destination with
// totalQuantity units and the given merchandise subtotal.
func (c Calculator) Cost(destination string, totalQuantity int, subtotal decimal.Decimal) decimal.Decimal {
	if totalQuantity <= 0 {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(c.FreeThreshold) {
		return decimal.Zero
	}

	base := c.StandardBase
	if c.isRemote(destination) {
		base = c.RemoteBase
	}

	extra := decimal.NewFromInt(int64(totalQuantity - 1)).Mul(c.PerExtraUnit)
	cost := base.Add(extra)
	return decimal.Min(cost, c.MaxCost)
}

// isRemote reports whether destination names one of the remote localities.
// Matching is a case-insensitive substring check so that values like
// "Dakhla Centre" still land in the remote zone.
func (c Calculator) isRemote(destination string) bool {
	dest := strings.ToLower(destination)
	for _, zone := range c.RemoteZones {
		if strings.Contains(dest, zone) {
			return true
		}
	}
	return false
}
