package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/notification-engine/internal/middleware"
)

type stubVerifier map[string]*auth.Token

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := s[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

func TestFirebaseLogin(t *testing.T) {
	s := newTestServer(t)
	verifier := stubVerifier{
		"good": {UID: "fb-1", Claims: map[string]interface{}{"email": "carol@example.com", "name": "Carol"}},
	}
	NewAuthHandler(s.users, verifier, "secret").RegisterAuthRoutes(s.e.Group("/api/v1/auth"))

	rec, _ := s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", `{"idToken":"forged"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", `{"idToken":"good"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)

	user, err := s.users.GetUserByFirebaseUID(context.Background(), "fb-1")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, "Carol", user.Name)

	// the issued token authenticates against the JWT middleware as the directory user
	s.e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, getUserIDFromContext(c))
	}, middleware.JWTAuthMiddleware("secret"))

	rec, _ = s.doWithToken(t, http.MethodGet, "/whoami", body.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, rec.Body.String())

	// logging in again reuses the same user
	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", `{"idToken":"good"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var count int64
	require.NoError(t, s.db.Table("users").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
