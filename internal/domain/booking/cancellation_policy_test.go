package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowPolicy_Boundary(t *testing.T) {
	p := NewDefaultCancellationPolicy()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Duration
		want bool
	}{
		{"immediately", 0, true},
		{"eleven hours", 11 * time.Hour, true},
		{"exactly twelve hours", 12 * time.Hour, true},
		{"one millisecond late", 12*time.Hour + time.Millisecond, false},
		{"thirteen hours", 13 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsCancellable(created, created.Add(tt.at)))
		})
	}
}

func TestWindowPolicy_AnchoredToCreation(t *testing.T) {
	p := NewWindowPolicy(time.Hour)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Hour, p.Window())
	assert.True(t, p.IsCancellable(created, created.Add(59*time.Minute)))
	assert.False(t, p.IsCancellable(created, created.Add(61*time.Minute)))
}
