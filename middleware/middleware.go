package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"eventweb/globals"
	"eventweb/rdx"
	"eventweb/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	jwt.RegisteredClaims
}

var errNoToken = errors.New("missing token")

// Tokens signs and verifies access tokens with an HMAC secret.
type Tokens struct {
	secret   []byte
	ttl      time.Duration
	denylist rdx.Denylist
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, denylist: rdx.NopDenylist{}}
}

// WithDenylist makes Authenticate reject tokens revoked at logout.
func (t *Tokens) WithDenylist(d rdx.Denylist) *Tokens {
	t.denylist = d
	return t
}

// Revoke denylists raw for the rest of its lifetime.
func (t *Tokens) Revoke(ctx context.Context, raw string, now time.Time) error {
	claims, err := t.Parse(raw)
	if err != nil {
		return nil
	}
	return t.denylist.Revoke(ctx, raw, claims.ExpiresAt.Time.Sub(now))
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for the given user.
func (t *Tokens) Issue(userID, username string, now time.Time) (string, error) {
	claims := Claims{
		Username: username,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a raw token string.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("unauthorized: invalid token")
	}
	return claims, nil
}

// tokenFrom prefers the Authorization header and falls back to the cookie.
func tokenFrom(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || raw == "" {
			return "", errors.New("invalid token format")
		}
		return raw, nil
	}
	if c, err := r.Cookie(globals.AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errNoToken
}

func withClaims(r *http.Request, raw string, c *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, globals.UsernameKey, c.Username)
	ctx = context.WithValue(ctx, globals.TokenKey, raw)
	return r.WithContext(ctx)
}

func (t *Tokens) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		raw, err := tokenFrom(r)
		if errors.Is(err, errNoToken) {
			utils.RespondFailure(w, http.StatusUnauthorized, "Missing token")
			return
		}
		if err != nil {
			utils.RespondFailure(w, http.StatusUnauthorized, "Invalid token format")
			return
		}
		claims, err := t.Parse(raw)
		if err != nil {
			utils.RespondFailure(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if revoked, err := t.denylist.Revoked(r.Context(), raw); err != nil || revoked {
			utils.RespondFailure(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, withClaims(r, raw, claims), ps)
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// proceeds either way.
func (t *Tokens) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if raw, err := tokenFrom(r); err == nil {
			if claims, err := t.Parse(raw); err == nil {
				r = withClaims(r, raw, claims)
			}
		}
		next(w, r, ps)
	}
}

// Chain applies mws so that the first one runs outermost.
func Chain(mws ...func(httprouter.Handle) httprouter.Handle) func(httprouter.Handle) httprouter.Handle {
	return func(h httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
