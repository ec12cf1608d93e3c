package sla

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/opsdesk/sla-service/internal/domain"
)

var (
	minFactor = decimal.RequireFromString("0.25")
	maxFactor = decimal.RequireFromString("2.0")
)

// FactorTable holds one multiplier per business criticality.
type FactorTable [6]decimal.Decimal

// DefaultFactors are the criticality adjustment factors.
func DefaultFactors() FactorTable {
	return FactorTable{
		decimal.RequireFromString("0.5"),
		decimal.RequireFromString("0.75"),
		decimal.RequireFromString("0.9"),
		decimal.RequireFromString("1.0"),
		decimal.RequireFromString("1.25"),
		decimal.RequireFromString("1.5"),
	}
}

// Validate checks every factor lies within [0.25, 2.0].
func (f FactorTable) Validate() error {
	for b, factor := range f {
		if factor.LessThan(minFactor) || factor.GreaterThan(maxFactor) {
			return fmt.Errorf("%w: adjustment factor %s for business criticality %d outside [%s, %s]",
				ErrInvalidInput, factor, b, minFactor, maxFactor)
		}
	}
	return nil
}

// Factor returns the multiplier that applies, which is 1 when adjustment is disabled.
func (f FactorTable) Factor(business domain.BusinessCriticality, enabled bool) (decimal.Decimal, error) {
	if !enabled {
		return decimal.NewFromInt(1), nil
	}
	if !business.Valid() {
		return decimal.Zero, fmt.Errorf("%w: business criticality %d out of range 0-5", ErrInvalidInput, business)
	}
	return f[business], nil
}

// Adjust scales baseMinutes by the factor of the business criticality.
// The result is rounded up so an SLA is never tightened by rounding.
func (f FactorTable) Adjust(baseMinutes int, business domain.BusinessCriticality, enabled bool) (int, error) {
	if !enabled {
		return baseMinutes, nil
	}
	if baseMinutes < 0 {
		return 0, fmt.Errorf("%w: negative base minutes %d", ErrInvalidInput, baseMinutes)
	}
	factor, err := f.Factor(business, enabled)
	if err != nil {
		return 0, err
	}
	return int(decimal.NewFromInt(int64(baseMinutes)).Mul(factor).Ceil().IntPart()), nil
}
