package middleware

import (
	"context"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/showyourbits/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// IDTokenVerifier is satisfied by *auth.Client.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Authenticate accepts a local JWT and, when a verifier is configured, falls back to a
// Firebase ID token.
func Authenticate(secret string, verifier IDTokenVerifier) echo.MiddlewareFunc {
	if verifier == nil {
		return JWTAuthMiddleware(secret)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}
			if claims, err := ParseJWT(tokenString, secret); err == nil {
				session.Set(c, &session.Session{UserID: claims.UID, Email: claims.Email})
				return next(c)
			}
			s, err := verifyFirebase(c.Request().Context(), verifier, tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			session.Set(c, s)
			return next(c)
		}
	}
}

func verifyFirebase(ctx context.Context, verifier IDTokenVerifier, idToken string) (*session.Session, error) {
	token, err := verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	email, _ := token.Claims["email"].(string)
	return &session.Session{UserID: token.UID, Email: email}, nil
}
