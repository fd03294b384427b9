package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCost(t *testing.T) {
	calc := Default()

	tests := []struct {
		name        string
		destination string
		quantity    int
		subtotal    string
		want        string
	}{
		{
			name:        "zero quantity ships nothing",
			destination: "Casablanca",
			quantity:    0,
			subtotal:    "100.00",
			want:        "0",
		},
		{
			name:        "free above threshold",
			destination: "Casablanca",
			quantity:    2,
			subtotal:    "600.00",
			want:        "0",
		},
		{
			name:        "free at exact threshold",
			destination: "Dakhla",
			quantity:    1,
			subtotal:    "500.00",
			want:        "0",
		},
		{
			name:        "standard single unit",
			destination: "Casablanca",
			quantity:    1,
			subtotal:    "100.00",
			want:        "25",
		},
		{
			name:        "standard with extra units",
			destination: "Rabat",
			quantity:    2,
			subtotal:    "100.00",
			want:        "35",
		},
		{
			name:        "standard capped at max",
			destination: "Casablanca",
			quantity:    3,
			subtotal:    "100.00",
			want:        "45",
		},
		{
			name:        "standard stays capped for big carts",
			destination: "Casablanca",
			quantity:    10,
			subtotal:    "100.00",
			want:        "45",
		},
		{
			name:        "remote single unit pays the cap",
			destination: "Dakhla",
			quantity:    1,
			subtotal:    "100.00",
			want:        "45",
		},
		{
			name:        "remote never exceeds the cap",
			destination: "Laayoune",
			quantity:    4,
			subtotal:    "100.00",
			want:        "45",
		},
		{
			name:        "remote match is case-insensitive substring",
			destination: "DAKHLA Centre",
			quantity:    1,
			subtotal:    "100.00",
			want:        "45",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Cost(tt.destination, tt.quantity, decimal.RequireFromString(tt.subtotal))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got),
				"want %s, got %s", tt.want, got)
		})
	}
}

func TestIsRemote(t *testing.T) {
	calc := Default()

	assert.True(t, calc.isRemote("dakhla"))
	assert.True(t, calc.isRemote("Boujdour Sud"))
	assert.False(t, calc.isRemote("Casablanca"))
	assert.False(t, calc.isRemote(""))
}
