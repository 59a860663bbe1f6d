package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
)

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are issued by the external auth backend; only sub and role are used here.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type viewerKey struct{}

// Authenticator verifies HS256 bearer tokens and turns them into viewers.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// IssueToken signs a token for the given viewer. Used by tooling and tests.
func (a *Authenticator) IssueToken(viewer domain.Viewer, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(viewer.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewer.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) ParseViewer(authHeader string) (domain.Viewer, error) {
	if authHeader == "" {
		return domain.Viewer{}, ErrMissingToken
	}
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || tokenString == "" {
		return domain.Viewer{}, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Viewer{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role := domain.Role(claims.Role)
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return domain.Viewer{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	if claims.Subject == "" {
		return domain.Viewer{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return domain.Viewer{UserID: claims.Subject, Role: role}, nil
}

// Require rejects requests without a valid bearer token.
func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := a.ParseViewer(r.Header.Get("Authorization"))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, APIResponse{Success: false, Message: err.Error()})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), viewerKey{}, viewer)))
	}
}

// Optional lets guests through with an empty viewer but still rejects bad tokens.
func (a *Authenticator) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next(w, r)
			return
		}
		a.Require(next)(w, r)
	}
}

// AdminRequired must be wrapped by Require.
func AdminRequired(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ViewerFromContext(r.Context()).IsAdmin() {
			writeJSON(w, http.StatusForbidden, APIResponse{Success: false, Message: "admin privileges required"})
			return
		}
		next(w, r)
	}
}

func ViewerFromContext(ctx context.Context) domain.Viewer {
	viewer, _ := ctx.Value(viewerKey{}).(domain.Viewer)
	return viewer
}
