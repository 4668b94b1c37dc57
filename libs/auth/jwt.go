package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by shopkeeper access tokens. Sub is the shopkeeper id.
type Claims struct {
	Sub  string
	Role string
	Exp  int64
	Iat  int64
}

type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func SignHS256(claims Claims, secret string) (string, error) {
	tc := tokenClaims{
		Role:             claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: claims.Sub},
	}
	if claims.Exp > 0 {
		tc.ExpiresAt = jwt.NewNumericDate(time.Unix(claims.Exp, 0))
	}
	if claims.Iat > 0 {
		tc.IssuedAt = jwt.NewNumericDate(time.Unix(claims.Iat, 0))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
}

func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	return parseAndVerifyHS256(token, secret, time.Now())
}

// parseAndVerifyHS256 accepts only HS256 tokens that carry a subject and an
// unexpired exp claim.
func parseAndVerifyHS256(token, secret string, now time.Time) (*Claims, error) {
	if secret == "" {
		return nil, ErrInvalidToken
	}
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tc.Subject == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{Sub: tc.Subject, Role: tc.Role, Exp: tc.ExpiresAt.Unix()}
	if tc.IssuedAt != nil {
		claims.Iat = tc.IssuedAt.Unix()
	}
	return claims, nil
}
