package billing

import (
	"fmt"
	"strings"

	"github.com/facturo/facturo/internal/shared"
)

// ErrInvalidLineItem rejects a line set containing any malformed line. The
// whole set must be valid; there is no skip-and-continue.
var ErrInvalidLineItem = fmt.Errorf("%w: invalid line item", shared.ErrValidation)

// ValidateLines checks every candidate line. An empty set, a blank
// description, a negative unit price, or a non-positive quantity fails the
// whole operation.
func ValidateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line item required", ErrInvalidLineItem)
	}
	for i, line := range lines {
		if strings.TrimSpace(line.Description) == "" {
			return fmt.Errorf("%w: line %d: description required", ErrInvalidLineItem, i+1)
		}
		if line.UnitPrice < 0 {
			return fmt.Errorf("%w: line %d: unit price must be >= 0", ErrInvalidLineItem, i+1)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d: quantity must be > 0", ErrInvalidLineItem, i+1)
		}
	}
	return nil
}

// ComputeTotals computes the invoice totals before and including tax from a
// validated line set. Pure and deterministic.
//
//	totalHT  = Σ(unitPrice × quantity)
//	totalTTC = totalHT × (1 + taxRate)
func ComputeTotals(lines []LineInput, taxRate float64) (totalHT, totalTTC float64, err error) {
	if err := ValidateLines(lines); err != nil {
		return 0, 0, err
	}
	if taxRate < 0 {
		return 0, 0, shared.Validationf("tax rate must be >= 0")
	}
	for _, line := range lines {
		totalHT += LineTotal(line.UnitPrice, line.Quantity)
	}
	totalHT = RoundMoney(totalHT)
	totalTTC = RoundMoney(totalHT * (1 + taxRate))
	return totalHT, totalTTC, nil
}

// LineTotal computes a single denormalized line total.
func LineTotal(unitPrice, quantity float64) float64 {
	return RoundMoney(unitPrice * quantity)
}

// RoundMoney rounds half-up to cents. Amounts are rounded at every
// computation boundary and stored as NUMERIC, so the float representation
// never drifts past cent precision.
func RoundMoney(val float64) float64 {
	return float64(int64(val*100+0.5)) / 100
}
