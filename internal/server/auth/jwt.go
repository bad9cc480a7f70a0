// Package auth issues and checks ledger session tokens and verifies the
// signed connect challenge.
package auth

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
	"github.com/golang-jwt/jwt/v5"
)

// MaxClockSkew bounds how far a connect timestamp may be from the node clock.
const MaxClockSkew = 5 * time.Minute

var ErrStaleChallenge = errors.New("connect timestamp out of range")

// Claims carries the account address in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256 token for address. It returns the token and
// its expiry.
func GenerateToken(address string, secretKey []byte, validityDuration time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(validityDuration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, exp, nil
}

// GetAddressFromToken validates tokenString and returns its subject. Expired
// tokens yield common.ErrTokenExpired, every other failure
// common.ErrInvalidToken.
func GetAddressFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// VerifyConnect checks the connect challenge and returns the address of pub.
func VerifyConnect(pub []byte, timestamp int64, signature []byte, now time.Time) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", common.ErrorUnauthorized
	}

	ts := time.Unix(timestamp, 0)
	if ts.Before(now.Add(-MaxClockSkew)) || ts.After(now.Add(MaxClockSkew)) {
		return "", ErrStaleChallenge
	}

	if !ed25519.Verify(pub, ledger.ConnectMessage(timestamp), signature) {
		return "", common.ErrorUnauthorized
	}

	return ledger.AddressFromPublicKey(pub), nil
}
