// Package auth guards the destructive routes with HS256 admin JWTs read from
// the Authorization header or a cookie. With an empty secret the guard is off.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/patric-chuzhbe/twitoff/internal/logger"
)

// RoleAdmin is the only role accepted by Guard.
const RoleAdmin = "admin"

// CookieName is the cookie Guard falls back to when no Authorization header is sent.
const CookieName = "twitoff_admin"

// ErrInvalidToken is returned for missing, expired, badly signed or non-admin tokens.
var ErrInvalidToken = errors.New("invalid admin token")

// Claims represents the JWT claims of an admin token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Auth issues and verifies admin tokens.
type Auth struct {
	secret []byte
}

// New creates an Auth signing with secret.
func New(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (a *Auth) Enabled() bool {
	return len(a.secret) > 0
}

// BuildToken signs an admin token for subject valid for ttl. A zero ttl never expires.
func (a *Auth) BuildToken(subject string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Role: RoleAdmin,
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks tokenString and returns its claims.
func (a *Auth) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TokenFromRequest extracts a bearer token from the Authorization header or the admin cookie.
func TokenFromRequest(request *http.Request) string {
	header := request.Header.Get("Authorization")
	if header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := request.Cookie(CookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// Guard is an HTTP middleware rejecting requests without a valid admin token
// with 401. It lets everything through when no secret is configured.
func (a *Auth) Guard(h http.Handler) http.Handler {
	if !a.Enabled() {
		return h
	}

	middleware := func(response http.ResponseWriter, request *http.Request) {
		claims, err := a.Verify(TokenFromRequest(request))
		if err != nil {
			logger.Log.Debugw("admin guard rejected request", "uri", request.RequestURI, "error", err)
			http.Error(response, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		logger.Log.Infow("admin request", "uri", request.RequestURI, "subject", claims.Subject)
		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
