// Package utils provides utility functions for the application.
package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonthClamped(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			name:     "mid-month date keeps its day",
			input:    time.Date(2025, time.March, 15, 9, 30, 0, 0, time.UTC),
			expected: time.Date(2025, time.April, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name:     "jan 31 clamps to feb 28",
			input:    time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "jan 31 clamps to feb 29 in leap years",
			input:    time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "may 31 clamps to jun 30",
			input:    time.Date(2025, time.May, 31, 12, 0, 0, 0, time.UTC),
			expected: time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "december rolls into the next year",
			input:    time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddMonthClamped(tt.input))
		})
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		expected int
	}{
		{
			name:     "same calendar day is zero regardless of clock time",
			deadline: time.Date(2025, time.June, 10, 23, 59, 0, 0, time.UTC),
			expected: 0,
		},
		{
			name:     "tomorrow early morning is one day",
			deadline: time.Date(2025, time.June, 11, 1, 0, 0, 0, time.UTC),
			expected: 1,
		},
		{
			name:     "a week out",
			deadline: time.Date(2025, time.June, 17, 9, 0, 0, 0, time.UTC),
			expected: 7,
		},
		{
			name:     "passed deadline is negative",
			deadline: time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC),
			expected: -7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysUntil(now, tt.deadline, time.UTC))
		})
	}
}

func TestDaysUntilNilLocationDefaultsToUTC(t *testing.T) {
	now := time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)
	deadline := time.Date(2025, time.June, 12, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, DaysUntil(now, deadline, nil))
}

func TestNextDailyFire(t *testing.T) {
	t.Run("fire time still ahead today", func(t *testing.T) {
		now := time.Date(2025, time.June, 10, 7, 0, 0, 0, time.UTC)
		fire := NextDailyFire(now, 9, 30, time.UTC)
		assert.Equal(t, time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC), fire)
	})

	t.Run("fire time already passed rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)
		fire := NextDailyFire(now, 9, 30, time.UTC)
		assert.Equal(t, time.Date(2025, time.June, 11, 9, 30, 0, 0, time.UTC), fire)
	})

	t.Run("exactly at fire time rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)
		fire := NextDailyFire(now, 9, 30, time.UTC)
		assert.Equal(t, time.Date(2025, time.June, 11, 9, 30, 0, 0, time.UTC), fire)
	})
}
