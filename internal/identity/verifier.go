// Package identity verifies the identity tokens issued by the external
// identity provider and feeds the resulting identities into a session.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var ErrInvalidToken = errors.New("invalid identity token")

// Verifier validates signed identity tokens.
type Verifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
	close   func()
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret string) *Verifier {
	key := []byte(secret)
	return &Verifier{
		keyfunc: func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return key, nil
		},
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

// NewJWKSVerifier verifies RS256 tokens against the keys published at
// jwksURL. Keys are refreshed in the background until Close.
func NewJWKSVerifier(jwksURL string, log zerolog.Logger) (*Verifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Warn().Err(err).Str("jwks_url", jwksURL).Msg("jwks refresh failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks from %s: %w", jwksURL, err)
	}
	return &Verifier{
		keyfunc: jwks.Keyfunc,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired()),
		close:   jwks.EndBackground,
	}, nil
}

// Verify parses raw and returns its claims when the signature and
// registered claims are valid.
func (v *Verifier) Verify(raw string) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(raw, claims, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrInvalidToken)
	}
	return claims, nil
}

// Close stops background key refresh.
func (v *Verifier) Close() {
	if v.close != nil {
		v.close()
	}
}
