package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	codec := NewSessionTokenCodec("secret")
	session := &models.Session{
		ID: "s1", CourseID: "CS101", TeacherID: "t1", TeacherName: "Ali Ahmed",
		CreatedAt: time.UnixMilli(0), ExpiryAt: 60000, Kind: models.SessionKindLive, Active: true,
	}

	token, err := codec.Encode(session)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "CS101", claims.CourseID)
	assert.Equal(t, "Ali Ahmed", claims.TeacherName)
	assert.Equal(t, int64(0), claims.IssuedAt)
	assert.Equal(t, int64(60000), claims.ExpiryAt)
	assert.False(t, claims.ExpiredAt(time.UnixMilli(60000)))
	assert.True(t, claims.ExpiredAt(time.UnixMilli(60001)))
}

func TestSessionTokenIsStable(t *testing.T) {
	codec := NewSessionTokenCodec("secret")
	session := &models.Session{ID: "s1", CourseID: "CS101", CreatedAt: time.UnixMilli(5), ExpiryAt: 10}
	a, err := codec.Encode(session)
	require.NoError(t, err)
	b, err := codec.Encode(session)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSessionTokenRejectsTampering(t *testing.T) {
	codec := NewSessionTokenCodec("secret")
	token, err := codec.Encode(&models.Session{ID: "s1", CourseID: "CS101", ExpiryAt: 60000})
	require.NoError(t, err)

	_, err = NewSessionTokenCodec("other").Decode(token)
	assert.True(t, errors.Is(err, appErrors.ErrMalformedToken))

	for _, raw := range []string{"", "not-a-token", `{"courseId":"CS101","expiry":60000}`} {
		_, err = codec.Decode(raw)
		assert.True(t, errors.Is(err, appErrors.ErrMalformedToken), raw)
	}
}

func TestSessionTokenRequiresFields(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{SessionID: "s1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewSessionTokenCodec("secret").Decode(signed)
	assert.True(t, errors.Is(err, appErrors.ErrMalformedToken))
}

func TestSessionTokenRejectsOtherAlgorithms(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{CourseID: "CS101", ExpiryAt: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSessionTokenCodec("secret").Decode(unsigned)
	assert.True(t, errors.Is(err, appErrors.ErrMalformedToken))
}
