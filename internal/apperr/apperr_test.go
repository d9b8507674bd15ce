package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassOf_ReturnsClassForAppError(t *testing.T) {
	err := NotFound("broadcast", "broadcast not found")

	class, ok := ClassOf(err)
	assert.True(t, ok)
	assert.Equal(t, ClassNotFound, class)
}

func TestClassOf_FalseForPlainError(t *testing.T) {
	_, ok := ClassOf(errors.New("boom"))
	assert.False(t, ok)
}

func TestClassOf_UnwrapsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", RateLimited("too many connections"))

	class, ok := ClassOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ClassRateLimited, class)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(StoreUnavailable("db down", nil)))
	assert.True(t, IsRetryable(GridUnavailable("redis down", nil)))
	assert.True(t, IsRetryable(ConflictCAS("cas failed", nil)))
	assert.False(t, IsRetryable(Validation("field", "bad input")))
	assert.False(t, IsRetryable(NotFound("x", "missing")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreUnavailable("could not reach postgres", cause)

	assert.ErrorIs(t, err, cause)
}

func TestError_MessageFormatsWithAndWithoutCause(t *testing.T) {
	withCause := StoreUnavailable("db op failed", errors.New("timeout"))
	assert.Contains(t, withCause.Error(), "timeout")
	assert.Contains(t, withCause.Error(), "DURABLE_STORE_UNAVAILABLE")

	withoutCause := Validation("field", "required")
	assert.NotContains(t, withoutCause.Error(), "<nil>")
	assert.Contains(t, withoutCause.Error(), "VALIDATION")
}
