package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Action
	}{
		{"read", "read", Read},
		{"write", "write", Write},
		{"search", "search", Search},
		{"unknown maps to read", "glance", Read},
		{"empty maps to read", "", Read},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestPriorityOrdering(t *testing.T) {
	assert.Greater(t, Write.Priority(), Search.Priority())
	assert.Greater(t, Search.Priority(), Read.Priority())
}

func TestString(t *testing.T) {
	assert.Equal(t, "write", Write.String())
	assert.Equal(t, "search", Search.String())
	assert.Equal(t, "read", Read.String())
}
