package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, grant, err := signer.Sign("job-1", "reports/cs101.csv")
	require.NoError(t, err)

	got, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, grant, got)
	assert.Equal(t, "reports/cs101.csv", got.Path)
}

func TestVerifyExpired(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Minute).WithClock(func() time.Time { return now })
	token, _, err := signer.Sign("job-1", "reports/cs101.csv")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	grant, err := signer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "job-1", grant.JobID)
}

func TestVerifyRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "reports/cs101.csv")
	require.NoError(t, err)

	_, err = NewSignedURLSigner("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = signer.Verify("job-2" + token[len("job-1"):])
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = signer.Verify("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
