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
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner creates and validates signed note download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token granting access to noteID until the returned time.
func (s *SignedURLSigner) Generate(noteID string) (string, time.Time, error) {
	if noteID == "" {
		return "", time.Time{}, fmt.Errorf("note id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(noteID))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encodedID, ts, s.sign(encodedID, ts)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the note it grants access to.
func (s *SignedURLSigner) Parse(token string) (noteID string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", time.Time{}, ErrInvalidToken
	}
	encodedID, ts, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.sign(encodedID, ts)), []byte(signature)) {
		return "", time.Time{}, ErrInvalidToken
	}
	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	expiresAt = time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", time.Time{}, ErrTokenExpired
	}
	return string(rawID), expiresAt, nil
}

func (s *SignedURLSigner) sign(encodedID, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedID + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
