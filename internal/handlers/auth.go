package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/showyourbits/backend/internal/mailer"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/repositories"
	"github.com/anonto42/showyourbits/backend/validators"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of the locally issued JWT.
const TokenTTL = 72 * time.Hour

// FirebaseIdentity is the subset of the Firebase auth client the API uses.
type FirebaseIdentity interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// Mailer sends one message.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   FirebaseIdentity
	mailer         Mailer
	jwtSecret      string
	logger         *zap.Logger
	now            func() time.Time
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth and m may be nil; the routes
// that need them answer 503.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth FirebaseIdentity, m Mailer, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		mailer:         m,
		jwtSecret:      jwtSecret,
		logger:         logger,
		now:            time.Now,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
	g.POST("/password-reset", h.PasswordReset)
}

// AuthResponse is returned by every successful sign-in.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := h.userRepository.GetUserByEmail(email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		UID:      uuid.NewString(),
		Email:    email,
		Username: models.EmailLocalPart(email),
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return h.issue(c, http.StatusCreated, user)
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SigninRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(req.Email)
	if err != nil || user.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if user.Disabled {
		return echo.NewHTTPError(http.StatusForbidden, "Account disabled")
	}

	return h.issue(c, http.StatusOK, user)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token, upserts the profile and issues a local JWT.
// An existing local account with the same email is linked rather than duplicated.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase sign-in is not configured")
	}
	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.firebaseAuth.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}
	email, _ := token.Claims["email"].(string)
	email = strings.ToLower(email)
	picture, _ := token.Claims["picture"].(string)

	user, err := h.userRepository.GetUserByUID(token.UID)
	switch {
	case err == nil:
		if email != "" {
			user.Email = email
		}
		user.FirebaseLinked = true
		if err := h.userRepository.UpdateUser(user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user details")
		}
	case errors.Is(err, repositories.ErrUserNotFound):
		if email != "" {
			user, err = h.userRepository.GetUserByEmail(email)
		}
		if err == nil {
			user.FirebaseLinked = true
			if err := h.userRepository.UpdateUser(user); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to link user")
			}
			break
		}
		if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
		}
		name, _ := token.Claims["name"].(string)
		if name == "" || !validators.IsUsername(name) {
			name = models.EmailLocalPart(email)
		}
		user = &models.User{
			UID:            token.UID,
			Email:          email,
			Username:       name,
			PhotoURL:       picture,
			FirebaseLinked: true,
		}
		if err := h.userRepository.CreateUser(user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}

	if user.Disabled {
		return echo.NewHTTPError(http.StatusForbidden, "Account disabled")
	}
	return h.issue(c, http.StatusOK, user)
}

// PasswordReset mails a Firebase reset link. It answers 200 whether or not the address
// is known so that it cannot be used to probe accounts.
func (h *AuthHandler) PasswordReset(c echo.Context) error {
	var req models.PasswordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.SendPasswordReset(c.Request().Context(), req.Email); err != nil {
		h.logger.Warn("password reset failed", zap.String("email", req.Email), zap.Error(err))
	}
	return respond(c, http.StatusOK, echo.Map{"sent": true})
}

// SendPasswordReset generates a reset link for email and mails it.
func (h *AuthHandler) SendPasswordReset(ctx context.Context, email string) error {
	if h.firebaseAuth == nil || h.mailer == nil {
		return errors.New("password reset is not configured")
	}
	link, err := h.firebaseAuth.PasswordResetLink(ctx, email)
	if err != nil {
		return err
	}
	return h.mailer.Send(ctx, mailer.Message{
		To:      email,
		Subject: "Reset your Show Your Bits password",
		Body: "Someone asked to reset the password for this account.\n\n" +
			"Follow this link to choose a new one:\n" + link + "\n\n" +
			"If you did not ask for this, ignore this email.\n",
	})
}

func (h *AuthHandler) issue(c echo.Context, status int, user *models.User) error {
	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return respond(c, status, AuthResponse{Token: token, User: *user})
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	now := h.now()
	claims := &models.JwtCustomClaims{
		UID:   user.UID,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
