package pricing

import (
	"fmt"
	"sort"
	"strings"
)

type CustomerClass string

const (
	Normal   CustomerClass = "normal"
	Reseller CustomerClass = "reseller"
)

// ParseCustomerClass accepts both the local names and the API's
// customer_type values ("Biasa", "Reseller").
func ParseCustomerClass(value string) (CustomerClass, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "normal", "biasa":
		return Normal, nil
	case "reseller":
		return Reseller, nil
	default:
		return "", fmt.Errorf("unknown customer class %q", value)
	}
}

// WireValue is the customer_type value the transaction endpoints expect.
func (c CustomerClass) WireValue() string {
	if c == Reseller {
		return "Reseller"
	}
	return "Biasa"
}

// QuantityBreak grants TotalPrice for MinQuantity units once the purchased
// quantity reaches MinQuantity.
type QuantityBreak struct {
	MinQuantity float64
	TotalPrice  float64
}

type Line struct {
	VariantID     int
	Quantity      float64
	NormalPrice   float64
	ResellerPrice float64
	Breaks        []QuantityBreak
}

// UnitPrice resolves the per-unit price for line. A positive reseller price
// wins for reseller customers regardless of quantity breaks.
func UnitPrice(line Line, class CustomerClass) float64 {
	if class == Reseller && line.ResellerPrice > 0 {
		return line.ResellerPrice
	}

	if len(line.Breaks) > 0 {
		breaks := make([]QuantityBreak, len(line.Breaks))
		copy(breaks, line.Breaks)
		sort.SliceStable(breaks, func(i, j int) bool {
			return breaks[i].MinQuantity > breaks[j].MinQuantity
		})
		for _, b := range breaks {
			if b.MinQuantity > 0 && line.Quantity >= b.MinQuantity {
				return b.TotalPrice / b.MinQuantity
			}
		}
	}

	return line.NormalPrice
}

func LineTotal(line Line, class CustomerClass) float64 {
	return UnitPrice(line, class) * line.Quantity
}
