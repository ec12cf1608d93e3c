package sla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/sla-service/internal/domain"
)

func TestDefaultPriorityMatrixIsTotal(t *testing.T) {
	m := DefaultPriorityMatrix()
	require.NoError(t, m.Validate())

	for _, tech := range domain.TechnicalCriticalities {
		for b := domain.MinBusinessCriticality; b <= domain.MaxBusinessCriticality; b++ {
			p, err := m.Resolve(tech, b)
			require.NoError(t, err, "%s/%d", tech, b)
			assert.True(t, p.Valid(), "%s/%d resolved to %q", tech, b, p)
		}
	}
}

func TestPriorityMatrixMonotonic(t *testing.T) {
	m := DefaultPriorityMatrix()

	for b := domain.MinBusinessCriticality; b <= domain.MaxBusinessCriticality; b++ {
		prev := -1
		for _, tech := range domain.TechnicalCriticalities {
			p, err := m.Resolve(tech, b)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p.Rank(), prev, "raising severity to %s at business %d lowered priority", tech, b)
			prev = p.Rank()
		}
	}

	for _, tech := range domain.TechnicalCriticalities {
		prev := -1
		for b := domain.MaxBusinessCriticality; b >= domain.MinBusinessCriticality; b-- {
			p, err := m.Resolve(tech, b)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p.Rank(), prev, "lowering business number to %d for %s lowered priority", b, tech)
			prev = p.Rank()
		}
	}
}

func TestResolve(t *testing.T) {
	m := DefaultPriorityMatrix()

	tests := []struct {
		tech     domain.TechnicalCriticality
		business domain.BusinessCriticality
		want     domain.FinalPriority
	}{
		{domain.TechnicalDisaster, 0, domain.PriorityCritical},
		{domain.TechnicalDisaster, 5, domain.PriorityMedium},
		{domain.TechnicalHigh, 0, domain.PriorityVeryHigh},
		{domain.TechnicalAverage, 2, domain.PriorityMedium},
		{domain.TechnicalWarning, 3, domain.PriorityLow},
		{domain.TechnicalInformation, 5, domain.PriorityVeryLow},
	}
	for _, tt := range tests {
		t.Run(string(tt.tech), func(t *testing.T) {
			got, err := m.Resolve(tt.tech, tt.business)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsInvalidInput(t *testing.T) {
	m := DefaultPriorityMatrix()

	_, err := m.Resolve(domain.TechnicalDisaster, 6)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.Resolve(domain.TechnicalDisaster, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.Resolve("Catastrophe", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPriorityMatrixValidate(t *testing.T) {
	t.Run("missing row", func(t *testing.T) {
		m := DefaultPriorityMatrix()
		delete(m, domain.TechnicalAverage)
		assert.ErrorIs(t, m.Validate(), ErrInvalidInput)
	})

	t.Run("priority rises with business number", func(t *testing.T) {
		m := DefaultPriorityMatrix()
		row := m[domain.TechnicalWarning]
		row[5] = domain.PriorityCritical
		m[domain.TechnicalWarning] = row
		assert.ErrorIs(t, m.Validate(), ErrInvalidInput)
	})

	t.Run("priority drops with severity", func(t *testing.T) {
		m := DefaultPriorityMatrix()
		row := m[domain.TechnicalDisaster]
		row[0] = domain.PriorityVeryLow
		m[domain.TechnicalDisaster] = row
		assert.ErrorIs(t, m.Validate(), ErrInvalidInput)
	})

	t.Run("unknown label", func(t *testing.T) {
		m := DefaultPriorityMatrix()
		row := m[domain.TechnicalInformation]
		row[0] = "Urgente"
		m[domain.TechnicalInformation] = row
		assert.ErrorIs(t, m.Validate(), ErrInvalidInput)
	})
}
