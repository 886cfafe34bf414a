package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name              string
		page, limit       int
		wantPage, wantLim int
	}{
		{"defaults", 0, 0, 1, DefaultLimit},
		{"negative", -3, -1, 1, DefaultLimit},
		{"capped", 2, 500, 2, MaxLimit},
		{"valid", 3, 10, 3, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, l := Normalize(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p)
			assert.Equal(t, tt.wantLim, l)
		})
	}
}

func TestNewPaginatedResult(t *testing.T) {
	r := NewPaginatedResult([]string{"a", "b"}, 41, 1, 20)
	assert.Equal(t, 3, r.TotalPages)

	empty := NewPaginatedResult[string](nil, 0, 1, 20)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Equal(t, 20, Offset(2, 20))
}
