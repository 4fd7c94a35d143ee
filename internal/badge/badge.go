// Package badge resolves scanned QR payloads to a child's badge code.
//
// Two payload formats are accepted: the printed legacy form
// "summerfest_child_<uuid>", and an HS256-signed token whose subject is the
// child's uuid. Signed badges can only be issued and read when a secret is set.
package badge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LegacyPrefix starts every unsigned badge payload
const LegacyPrefix = "summerfest_child_"

const issuer = "summerfest"

var (
	ErrInvalidBadge    = errors.New("invalid badge")
	ErrSigningDisabled = errors.New("badge signing secret not configured")
)

// Claims is the signed badge body
type Claims struct {
	ClassGroup string `json:"class,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and decodes badge payloads
type Codec struct {
	secretKey []byte
}

// NewCodec creates a codec. An empty secret accepts legacy payloads only.
func NewCodec(secretKey string) *Codec {
	return &Codec{secretKey: []byte(secretKey)}
}

// NewCode returns a fresh badge code for a child
func NewCode() string {
	return uuid.NewString()
}

// Legacy formats the unsigned payload for a code
func Legacy(code string) string {
	return LegacyPrefix + code
}

// Issue signs a badge for a child's code. Badges do not expire.
func (c *Codec) Issue(code, classGroup string) (string, error) {
	if len(c.secretKey) == 0 {
		return "", ErrSigningDisabled
	}
	if _, err := uuid.Parse(code); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBadge, err)
	}

	claims := &Claims{
		ClassGroup: classGroup,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  code,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign badge: %w", err)
	}
	return signed, nil
}

// Decode returns the child code carried by a scanned payload
func (c *Codec) Decode(payload string) (string, error) {
	payload = strings.TrimSpace(payload)

	if code, ok := strings.CutPrefix(payload, LegacyPrefix); ok {
		id, err := uuid.Parse(code)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBadge, err)
		}
		return id.String(), nil
	}

	if len(c.secretKey) == 0 {
		return "", ErrInvalidBadge
	}

	token, err := jwt.ParseWithClaims(payload, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return c.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBadge, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidBadge
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBadge, err)
	}
	return id.String(), nil
}
