package sla

import (
	"fmt"

	"github.com/opsdesk/sla-service/internal/domain"
)

// PriorityMatrix maps technical criticality and business criticality (column index 0-5) to a final priority.
type PriorityMatrix map[domain.TechnicalCriticality][6]domain.FinalPriority

// DefaultPriorityMatrix is the matrix shipped with the dashboard.
func DefaultPriorityMatrix() PriorityMatrix {
	return PriorityMatrix{
		domain.TechnicalInformation: {
			domain.PriorityLow, domain.PriorityLow, domain.PriorityLow,
			domain.PriorityLow, domain.PriorityLow, domain.PriorityVeryLow,
		},
		domain.TechnicalWarning: {
			domain.PriorityMedium, domain.PriorityMedium, domain.PriorityMedium,
			domain.PriorityLow, domain.PriorityLow, domain.PriorityVeryLow,
		},
		domain.TechnicalAverage: {
			domain.PriorityHigh, domain.PriorityHigh, domain.PriorityMedium,
			domain.PriorityMedium, domain.PriorityLow, domain.PriorityVeryLow,
		},
		domain.TechnicalHigh: {
			domain.PriorityVeryHigh, domain.PriorityHigh, domain.PriorityHigh,
			domain.PriorityMedium, domain.PriorityMedium, domain.PriorityLow,
		},
		domain.TechnicalDisaster: {
			domain.PriorityCritical, domain.PriorityVeryHigh, domain.PriorityVeryHigh,
			domain.PriorityHigh, domain.PriorityMedium, domain.PriorityMedium,
		},
	}
}

// Validate checks that the matrix is total and monotonic: raising technical
// severity or lowering the business criticality number never lowers priority.
func (m PriorityMatrix) Validate() error {
	for _, tech := range domain.TechnicalCriticalities {
		row, ok := m[tech]
		if !ok {
			return fmt.Errorf("%w: priority matrix missing row %s", ErrInvalidInput, tech)
		}
		for b, p := range row {
			if !p.Valid() {
				return fmt.Errorf("%w: priority matrix %s/%d has unknown priority %q", ErrInvalidInput, tech, b, p)
			}
			if b > 0 && p.Rank() > row[b-1].Rank() {
				return fmt.Errorf("%w: priority matrix %s rises from business %d to %d", ErrInvalidInput, tech, b-1, b)
			}
		}
	}
	for i := 1; i < len(domain.TechnicalCriticalities); i++ {
		lower := m[domain.TechnicalCriticalities[i-1]]
		upper := m[domain.TechnicalCriticalities[i]]
		for b := range upper {
			if upper[b].Rank() < lower[b].Rank() {
				return fmt.Errorf("%w: priority matrix drops from %s to %s at business %d",
					ErrInvalidInput, domain.TechnicalCriticalities[i-1], domain.TechnicalCriticalities[i], b)
			}
		}
	}
	for tech := range m {
		if !tech.Valid() {
			return fmt.Errorf("%w: priority matrix has unknown technical criticality %q", ErrInvalidInput, tech)
		}
	}
	return nil
}

// Resolve returns the final priority for the pair.
func (m PriorityMatrix) Resolve(tech domain.TechnicalCriticality, business domain.BusinessCriticality) (domain.FinalPriority, error) {
	if !business.Valid() {
		return "", fmt.Errorf("%w: business criticality %d out of range 0-5", ErrInvalidInput, business)
	}
	row, ok := m[tech]
	if !ok {
		return "", fmt.Errorf("%w: unknown technical criticality %q", ErrInvalidInput, tech)
	}
	return row[business], nil
}
