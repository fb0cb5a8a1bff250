package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenInvalid = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// Grant is the content of a verified download token.
type Grant struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC protected download tokens of the form
// jobID.expiryUnix.base64(path).signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner returns a signer; ttl defaults to a day.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source.
func (s *SignedURLSigner) WithClock(now func() time.Time) *SignedURLSigner {
	s.now = now
	return s
}

// Sign issues a token for the stored file of a job.
func (s *SignedURLSigner) Sign(jobID, path string) (string, Grant, error) {
	if jobID == "" || path == "" {
		return "", Grant{}, fmt.Errorf("job id and path required")
	}
	if len(s.secret) == 0 {
		return "", Grant{}, fmt.Errorf("signing secret missing")
	}
	exp := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(exp.Unix(), 10)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(path))
	token := strings.Join([]string{jobID, ts, encoded, s.mac(jobID, ts, encoded)}, ".")
	return token, Grant{JobID: jobID, Path: path, ExpiresAt: exp}, nil
}

// Verify checks the signature and expiry of token.
func (s *SignedURLSigner) Verify(token string) (Grant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Grant{}, ErrTokenInvalid
	}
	jobID, ts, encoded, sig := parts[0], parts[1], parts[2], parts[3]
	if !hmac.Equal([]byte(s.mac(jobID, ts, encoded)), []byte(sig)) {
		return Grant{}, ErrTokenInvalid
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	path, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	grant := Grant{JobID: jobID, Path: string(path), ExpiresAt: time.Unix(unix, 0)}
	if s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) mac(jobID, ts, encoded string) string {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(jobID + "|" + ts + "|" + encoded))
	return hex.EncodeToString(m.Sum(nil))
}
