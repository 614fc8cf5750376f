package generation_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/moodboard-api/internal/generation"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", generation.ErrTransientFailure, true},
		{"wrapped transient", fmt.Errorf("embed: %w", generation.ErrTransientFailure), true},
		{"invalid response", generation.ErrInvalidResponse, false},
		{"blocked", fmt.Errorf("%w: safety", generation.ErrContentBlocked), false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, generation.IsTransient(tt.err))
		})
	}
}
