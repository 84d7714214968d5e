package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	claimUserID  = "userId"
	claimIsAdmin = "isAdmin"
)

var errUnauthenticated = errors.New("authentication required")

// Identity is the caller as established by a verified bearer token.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// IdentityFrom returns the identity stored by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Authenticator verifies HS256 tokens carrying userId and isAdmin claims.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// IssueToken signs a token for the given user. Credentials are checked
// elsewhere; this only mints what the middleware accepts.
func (a *Authenticator) IssueToken(userID int64, isAdmin bool, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		claimUserID:  userID,
		claimIsAdmin: isAdmin,
		"iat":        jwt.NewNumericDate(a.now()),
		"exp":        jwt.NewNumericDate(a.now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Require rejects requests without a valid bearer token.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.identify(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// Optional attaches the identity when a valid token is present and lets
// anonymous requests through.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := a.identify(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after Require.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !id.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) identify(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Identity{}, errUnauthenticated
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return Identity{}, errors.New("invalid authorization header format")
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return Identity{}, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid token claims")
	}
	userID, err := userIDClaim(claims)
	if err != nil {
		return Identity{}, err
	}
	isAdmin, _ := claims[claimIsAdmin].(bool)
	return Identity{UserID: userID, IsAdmin: isAdmin}, nil
}

// userIDClaim accepts the id as a JSON number or a numeric string.
func userIDClaim(claims jwt.MapClaims) (int64, error) {
	switch v := claims[claimUserID].(type) {
	case float64:
		if v != float64(int64(v)) || v <= 0 {
			return 0, fmt.Errorf("invalid %s claim: %v", claimUserID, v)
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid %s claim: %q", claimUserID, v)
		}
		return id, nil
	case nil:
		return 0, fmt.Errorf("missing %s claim", claimUserID)
	default:
		return 0, fmt.Errorf("invalid type for %s claim: %T", claimUserID, v)
	}
}
