package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Token salts. A token signed with one salt never verifies under another.
const (
	SaltInvite       = "invite-code"
	SaltEmailConfirm = "email-confirm"
)

// ResetTokenMaxAge is how long a password-reset link stays valid.
const ResetTokenMaxAge = time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

var b64 = base64.RawURLEncoding

// Signer issues and checks URL-safe tokens of the form
// payload.timestamp.signature, keyed per salt from one application secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

func (s *Signer) key(salt string) []byte {
	k := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, s.secret, []byte(salt), []byte("portfel token"))
	if _, err := io.ReadFull(r, k); err != nil {
		// hkdf only fails after 255*32 bytes.
		panic(err)
	}
	return k
}

func (s *Signer) mac(salt, msg string) []byte {
	m := hmac.New(sha256.New, s.key(salt))
	m.Write([]byte(msg))
	return m.Sum(nil)
}

// Sign returns a token carrying payload under salt.
func (s *Signer) Sign(salt, payload string) string {
	msg := b64.EncodeToString([]byte(payload)) + "." + strconv.FormatInt(s.now().Unix(), 36)
	return msg + "." + b64.EncodeToString(s.mac(salt, msg))
}

// Verify checks token under salt and returns its payload. maxAge <= 0
// disables the age check.
func (s *Signer) Verify(salt, token string, maxAge time.Duration) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	msg := parts[0] + "." + parts[1]
	sig, err := b64.DecodeString(parts[2])
	if err != nil || !hmac.Equal(sig, s.mac(salt, msg)) {
		return "", ErrInvalidToken
	}

	payload, err := b64.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidToken
	}
	ts, err := strconv.ParseInt(parts[1], 36, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if maxAge > 0 && s.now().Sub(time.Unix(ts, 0)) > maxAge {
		return "", fmt.Errorf("%w (issued %s)", ErrExpiredToken, time.Unix(ts, 0).UTC().Format(time.RFC3339))
	}
	return string(payload), nil
}
