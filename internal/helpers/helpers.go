package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "gigboard"

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenManager issues HS256 tokens and validates them, falling back to a
// remote JWKS when one is configured.
type TokenManager struct {
	secret []byte
	expiry time.Duration
	jwks   *keyfunc.JWKS
}

func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), expiry: expiry}
}

// WithJWKS fetches the key set once and keeps it refreshed in the background
// until ctx is cancelled.
func (tm *TokenManager) WithJWKS(ctx context.Context, url string, logger *slog.Logger) error {
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks refresh failed", "error", err)
		},
	})
	if err != nil {
		return fmt.Errorf("loading jwks from %s: %w", url, err)
	}
	tm.jwks = jwks
	return nil
}

func (tm *TokenManager) Close() {
	if tm.jwks != nil {
		tm.jwks.EndBackground()
	}
}

func (tm *TokenManager) Issue(userID, role, phone string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role:        role,
		PhoneNumber: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

func (tm *TokenManager) Validate(tokenStr string) (*Claims, error) {
	claims, err := tm.parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err == nil {
		return claims, nil
	}
	if tm.jwks != nil {
		if claims, jwksErr := tm.parse(tokenStr, tm.jwks.Keyfunc); jwksErr == nil {
			return claims, nil
		}
	}
	return nil, err
}

func (tm *TokenManager) parse(tokenStr string, keyFunc jwt.Keyfunc) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPin(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
