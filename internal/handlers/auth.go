package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/freelink/backend/internal/middleware"
	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const tokenLifetime = 72 * time.Hour

// AuthHandler exchanges a Firebase ID token for a local JWT, so clients that
// sign in through Firebase can call an API running in AUTH_MODE=jwt.
type AuthHandler struct {
	verifier  middleware.IDTokenVerifier
	jwtSecret string
	now       func() time.Time
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(verifier middleware.IDTokenVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{verifier: verifier, jwtSecret: jwtSecret, now: time.Now}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/firebase-login", h.FirebaseLogin)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin handles Firebase ID token verification and issues a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	// Verify Firebase ID token
	token, err := h.verifier.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	email, _ := token.Claims["email"].(string)
	localJWT, err := h.generateJWT(token.UID, email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}

	return ok(c, http.StatusOK, echo.Map{"token": localJWT, "userId": token.UID})
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(userID, email string) (string, error) {
	now := h.now()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
