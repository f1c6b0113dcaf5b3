package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	err := NotFound("PROJECT_NOT_FOUND", "project not found").WithResource("project")

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "PROJECT_NOT_FOUND")
}

func TestWrapPreservesKind(t *testing.T) {
	inner := Validation("BAD_FILTER", "tags must be a list")
	wrapped := Wrap(inner, "ListObjects", "filter validation failed")

	require.NotNil(t, wrapped)
	assert.True(t, IsValidation(wrapped))
	assert.True(t, errors.Is(wrapped, inner))
}

func TestWrapClassifiesUnknownAsInternal(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("boom"), "Query", "query failed")

	assert.True(t, IsKind(wrapped, KindInternal))
	assert.Equal(t, "WRAPPED", wrapped.Code)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "op", "msg"))
}

func TestRetryableKinds(t *testing.T) {
	assert.True(t, IsRetryable(Connection("REDIS_DOWN", "connection refused")))
	assert.True(t, IsRetryable(Timeout("SIGN_TIMEOUT", "deadline exceeded")))
	assert.True(t, IsUnavailable(Unavailable("CACHE_DOWN", "store unreachable")))
	assert.False(t, IsRetryable(Conflict("DUP", "already exists")))
}
