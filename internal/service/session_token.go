package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

// SessionClaims is the self-describing payload embedded in a QR code.
// Times are epoch milliseconds.
type SessionClaims struct {
	SessionID   string `json:"sessionId"`
	CourseID    string `json:"courseId"`
	TeacherID   string `json:"teacherId"`
	TeacherName string `json:"teacherName"`
	IssuedAt    int64  `json:"issuedAt"`
	ExpiryAt    int64  `json:"expiryAt"`
	jwt.RegisteredClaims
}

// ExpiredAt reports whether now is past the embedded deadline.
func (c *SessionClaims) ExpiredAt(now time.Time) bool {
	return now.UnixMilli() > c.ExpiryAt
}

// SessionTokenCodec signs and verifies session tokens with HS256.
type SessionTokenCodec struct {
	secret []byte
}

// NewSessionTokenCodec constructs a codec for secret.
func NewSessionTokenCodec(secret string) *SessionTokenCodec {
	return &SessionTokenCodec{secret: []byte(secret)}
}

// Encode serialises the session as issued.
func (c *SessionTokenCodec) Encode(session *models.Session) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("session token secret missing")
	}
	claims := SessionClaims{
		SessionID:   session.ID,
		CourseID:    session.CourseID,
		TeacherID:   session.TeacherID,
		TeacherName: session.TeacherName,
		IssuedAt:    session.CreatedAt.UnixMilli(),
		ExpiryAt:    session.ExpiryAt,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the claims. Deadlines are not
// checked here; callers compare ExpiryAt against their own clock.
func (c *SessionTokenCodec) Decode(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrMalformedToken, "session token is empty")
	}
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedToken.Code, appErrors.ErrMalformedToken.Status, appErrors.ErrMalformedToken.Message)
	}
	if claims.CourseID == "" || claims.ExpiryAt <= 0 {
		return nil, appErrors.Clone(appErrors.ErrMalformedToken, "session token is missing required fields")
	}
	return claims, nil
}
