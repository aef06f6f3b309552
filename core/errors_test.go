package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	conflict := NewConflictError("taken")
	shutdown := NewShutdownError("db gone")

	tests := []struct {
		name         string
		err          error
		wantConflict bool
		wantShutdown bool
	}{
		{name: "conflict", err: conflict, wantConflict: true},
		{name: "wrapped conflict", err: errors.Wrap(conflict, "assigning"), wantConflict: true},
		{name: "shutdown", err: errors.Wrap(shutdown, "committing"), wantShutdown: true},
		{name: "plain", err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantConflict, IsConflict(tt.err))
			assert.Equal(t, tt.wantShutdown, IsShutdown(tt.err))
		})
	}
}

func TestFieldErrors(t *testing.T) {
	flds, ok := FieldErrors(NewFieldError("hour", "is taken"), NewTranslator())
	assert.True(t, ok)
	assert.Equal(t, []FieldError{{Field: "hour", Error: "is taken"}}, flds)

	_, ok = FieldErrors(errors.New("boom"), NewTranslator())
	assert.False(t, ok)
}
