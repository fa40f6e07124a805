package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventweb/apperr"
	"eventweb/db"
	"eventweb/globals"
	"eventweb/middleware"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newService() *Service {
	svc := NewService(db.NewMemoryStore(), middleware.NewTokens("test-secret", time.Hour), zap.NewNop())
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegister_Validation(t *testing.T) {
	svc := newService()
	cases := map[string]Registration{
		"missing":     {Email: "a@example.com", Password: "longenough"},
		"bad email":   {Username: "a", Email: "not-an-email", Password: "longenough"},
		"short pass":  {Username: "a", Email: "a@example.com", Password: "short"},
		"named email": {Username: "a", Email: "Ana <a@example.com>", Password: "longenough"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, Registration{Username: "ana", Email: " Ana@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "password1", u.Password)

	_, err = svc.Register(ctx, Registration{Username: "dup", Email: "ana@example.com", Password: "password1"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Login(ctx, Credentials{Email: "ana@example.com", Password: "wrong-password"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Login(ctx, Credentials{Email: "nobody@example.com", Password: "password1"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	sess, err := svc.Login(ctx, Credentials{Email: "ANA@example.com", Password: "password1"})
	require.NoError(t, err)
	claims, err := svc.tokens.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
}

func TestChangePassword(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	u, err := svc.Register(ctx, Registration{Username: "ana", Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, PasswordChange{OldPassword: "nope-nope", NewPassword: "password2"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	require.NoError(t, svc.ChangePassword(ctx, u.ID, PasswordChange{OldPassword: "password1", NewPassword: "password2"}))
	_, err = svc.Login(ctx, Credentials{Email: "ana@example.com", Password: "password2"})
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, primitive.NewObjectID(), PasswordChange{OldPassword: "password2", NewPassword: "password3"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestHandlers_LoginSetsCookieAndCheckWorks(t *testing.T) {
	svc := newService()
	h := NewHandler(svc)
	router := httprouter.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	router.GET("/auth/check", svc.tokens.Authenticate(h.CheckAuthState))
	router.POST("/auth/logout", svc.tokens.Authenticate(h.Logout))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"username":"ana","email":"ana@example.com","password":"password1"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"ana@example.com","password":"password1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password1")

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == globals.AccessTokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/auth/check", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Email string `json:"email"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ana@example.com", body.Data.Email)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}
