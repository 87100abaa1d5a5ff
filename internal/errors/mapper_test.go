package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	svcErr "github.com/oggyb/matchbot/internal/errors"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want svcErr.Kind
	}{
		{"gorm not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), svcErr.KindNotFound},
		{"redis nil", redis.Nil, svcErr.KindNotFound},
		{"deadline", context.DeadlineExceeded, svcErr.KindExternal},
		{"canceled", context.Canceled, svcErr.KindExternal},
		{"plain", errors.New("boom"), svcErr.KindExternal},
		{"validation passes through", svcErr.Validation("bad age"), svcErr.KindValidation},
		{"wrapped invariant", fmt.Errorf("save: %w", svcErr.Invariant("self match")), svcErr.KindInvariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svcErr.KindOf(tt.err))
		})
	}

	assert.Nil(t, svcErr.Map(nil))
	assert.Nil(t, svcErr.External("noop", nil))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Please enter a valid age between 15 and 100.",
		svcErr.UserMessage(svcErr.Validation("Please enter a valid age between 15 and 100.")))

	// internal details never reach the user
	msg := svcErr.UserMessage(svcErr.External("upload photo", errors.New("s3: access denied for key xyz")))
	assert.Equal(t, svcErr.GenericMessage, msg)
	assert.Equal(t, svcErr.GenericMessage, svcErr.UserMessage(svcErr.NotFound("profile")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := svcErr.External("load session", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "load session")
	assert.True(t, svcErr.IsNotFound(svcErr.Map(gorm.ErrRecordNotFound)))
	assert.False(t, svcErr.IsValidation(nil))
}
