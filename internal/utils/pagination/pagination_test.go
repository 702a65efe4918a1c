package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimit(t *testing.T) {
	tests := []struct {
		name     string
		pageSize int
		want     int
	}{
		{"zero uses default", 0, DefaultPageSize},
		{"within range", 50, 50},
		{"capped", 500, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pagination{Page: 1, PageSize: tt.pageSize}
			assert.Equal(t, tt.want, p.Limit())
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 20))
	assert.Equal(t, 40, Offset(3, 20))
	assert.Equal(t, 0, Offset(0, 20))
	assert.Equal(t, MaxPageSize, Offset(2, 1000))
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name          string
		n, page, size int
		start, end    int
	}{
		{"first page", 5, 1, 2, 0, 2},
		{"last partial page", 5, 3, 2, 4, 5},
		{"past the end", 5, 4, 2, 5, 5},
		{"unpaged", 5, 1, 0, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Bounds(tt.n, tt.page, tt.size)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}
