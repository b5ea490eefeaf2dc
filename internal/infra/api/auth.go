package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"nova-payments/internal/infra/logging"
)

// UserClaims are issued by the accounts service; uid is the user's UUID.
type UserClaims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// JWTAuth resolves the calling user from a bearer token.
type JWTAuth struct {
	secret []byte
	issuer string
}

func NewJWTAuth(secret, issuer string) *JWTAuth {
	return &JWTAuth{secret: []byte(secret), issuer: issuer}
}

// Mint signs a token for userID; used by tests and local tooling.
func (a *JWTAuth) Mint(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
	errInvalidUID   = errors.New("invalid uid claim")
)

func (a *JWTAuth) parse(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return "", errMissingToken
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &UserClaims{}
	tkn, err := jwt.ParseWithClaims(strings.TrimSpace(hdr[7:]), claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return "", errInvalidToken
	}
	if _, err := uuid.Parse(claims.UID); err != nil {
		return "", errInvalidUID
	}
	return claims.UID, nil
}

// Middleware rejects unauthenticated requests and stores the user id in the
// request context.
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := a.parse(r)
		switch {
		case errors.Is(err, errInvalidUID):
			WriteProblem(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			WriteProblem(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(logging.WithUserID(r.Context(), uid)))
	})
}

// UserIDFrom returns the authenticated user, or "" outside JWTAuth.
func UserIDFrom(ctx context.Context) string {
	return logging.UserID(ctx)
}
