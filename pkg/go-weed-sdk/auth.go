package weed

import (
	"fmt"
	"time"

	"eddisonso.com/go-weed/internal/buildinfo"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultUserAgent is sent with every request unless overridden.
var DefaultUserAgent = "go-weed-sdk/" + buildinfo.Version

// SecretProvider supplies the JWT signing secret.
type SecretProvider func(*jwt.Token) (any, error)

// StaticSecret returns a SecretProvider that always yields key.
func StaticSecret(key []byte) SecretProvider {
	return func(*jwt.Token) (any, error) {
		return key, nil
	}
}

// FileIDClaims are the claims of a write token: the token authorises writes
// and deletes of exactly one file id until it expires.
type FileIDClaims struct {
	Fid string `json:"fid"`
	jwt.RegisteredClaims
}

// signToken mints a write token for fid, or returns "" when no secret is
// configured.
func (cfg *clientConfig) signToken(fid FileID) (string, error) {
	if cfg.secretProvider == nil {
		return "", nil
	}

	claims := FileIDClaims{
		Fid: fid.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	secret, err := cfg.secretProvider(token)
	if err != nil {
		return "", fmt.Errorf("failed to get secret: %w", err)
	}

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// authToken picks the explicit token if one was given, otherwise mints one.
func (cfg *clientConfig) authToken(explicit string, fid FileID) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return cfg.signToken(fid)
}
