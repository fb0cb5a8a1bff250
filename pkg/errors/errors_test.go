package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrExpired, "token deadline passed")
	assert.Equal(t, "token deadline passed", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrExpired))
	assert.False(t, errors.Is(cloned, ErrNotEnrolled))
	assert.Equal(t, "session has expired", ErrExpired.Message)
}

func TestStoreWrapsCause(t *testing.T) {
	err := Store(sql.ErrConnDone, "")
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.Equal(t, http.StatusServiceUnavailable, FromError(err).Status)
}
