package builderr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: CodeGeneral},
		{name: "typed error", err: New(400, "build failed"), want: 400},
		{name: "wrapped typed error", err: fmt.Errorf("step: %w", New(3, "x")), want: 3},
		{name: "typed error without code", err: &Error{Message: "x"}, want: CodeGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, 2, "copy %s", "App")

	assert.Equal(t, "copy App: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}
