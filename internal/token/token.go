// Package token issues and verifies the signed tokens that authorize a single
// recipient's unsubscribe actions. A token binds the recipient address (sub)
// to this system (iss) and carries no expiry: once minted it stays valid.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the fixed identity this system signs tokens under.
const Issuer = "unsubscribe-poc"

var ErrInvalidToken = errors.New("invalid token")

type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Issue mints a URL-safe token bound to the given recipient address.
func (c *Codec) Issue(email string) (string, error) {
	const op = "token.Issue"

	claims := jwt.MapClaims{
		"sub": email,
		"iss": Issuer,
		"iat": time.Now().Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify checks the signature and the payload shape and returns the recipient
// address the token was issued for. Missing, malformed, tampered and
// wrong-secret tokens all fail with ErrInvalidToken.
func (c *Codec) Verify(tokenStr string) (string, error) {
	const op = "token.Verify"

	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return c.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !parsed.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if iss, ok := claims["iss"].(string); !ok || iss != Issuer {
		return "", fmt.Errorf("%s: wrong issuer: %w", op, ErrInvalidToken)
	}

	if _, ok := claims["iat"].(float64); !ok {
		return "", fmt.Errorf("%s: missing iat claim: %w", op, ErrInvalidToken)
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%s: missing sub claim: %w", op, ErrInvalidToken)
	}

	return sub, nil
}
