package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestAverageGrade(t *testing.T) {
	tests := []struct {
		name     string
		grades   []float64
		expected float64
	}{
		{
			name:     "no ratings",
			grades:   []float64{},
			expected: 0,
		},
		{
			name:     "single rating",
			grades:   []float64{4},
			expected: 4,
		},
		{
			name:     "exact mean",
			grades:   []float64{4, 5},
			expected: 4.5,
		},
		{
			name:     "mean rounded to one decimal",
			grades:   []float64{3, 3, 4},
			expected: 3.3,
		},
		{
			name:     "rounds up",
			grades:   []float64{5, 5, 4},
			expected: 4.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratings := make([]Rating, 0, len(tt.grades))

			for _, grade := range tt.grades {
				ratings = append(ratings, Rating{User_id: uuid.New(), Grade: grade})
			}

			if got := AverageGrade(ratings); got != tt.expected {
				t.Fatalf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}
