package database

import (
	"math"
	"testing"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name          string
		n, count, off int
		start, end    int
	}{
		{"first page", 10, 3, 0, 0, 3},
		{"middle", 10, 3, 6, 6, 9},
		{"short last page", 10, 3, 9, 9, 10},
		{"past the end", 10, 3, 20, 10, 10},
		{"negative offset", 10, 3, -5, 0, 3},
		{"huge count", 10, math.MaxInt, 4, 4, 10},
		{"huge offset and count", 10, math.MaxInt, math.MaxInt, 10, 10},
		{"negative count", 10, -1, 2, 2, 10},
		{"empty", 0, 5, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Window(tt.n, tt.count, tt.off)
			if start != tt.start || end != tt.end {
				t.Errorf("Window(%d, %d, %d) = %d, %d, want %d, %d", tt.n, tt.count, tt.off, start, end, tt.start, tt.end)
			}
		})
	}
}
