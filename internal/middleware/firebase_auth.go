package middleware

import (
	"context"
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/anonto42/notification-engine/internal/models"
	"github.com/anonto42/notification-engine/internal/repositories"
)

// IDTokenVerifier is satisfied by *auth.Client
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserLookup resolves a Firebase UID to a directory user
type UserLookup interface {
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

// FirebaseAuthMiddleware creates an Echo middleware to verify Firebase ID tokens.
// The user id is the linked directory user, or the Firebase UID when none is linked yet.
func FirebaseAuthMiddleware(verifier IDTokenVerifier, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			token, err := verifier.VerifyIDToken(ctx, idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			userID := token.UID
			user, err := users.GetUserByFirebaseUID(ctx, token.UID)
			switch {
			case err == nil:
				userID = user.ID
			case errors.Is(err, repositories.ErrNotFound):
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve user").SetInternal(err)
			}

			c.Set("firebaseUID", token.UID)
			c.Set("firebaseToken", token)
			c.Set(UserIDKey, userID)

			return next(c)
		}
	}
}
