package handlers

import (
	"net/http"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterUserRoutes registers user routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.POST("/users", h.Register)
	g.GET("/profile", h.GetProfile)
	g.GET("/users/:id", h.GetUser)
}

// Register creates or refreshes the caller's user record
func (h *UserHandler) Register(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req models.RegisterUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.Register(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusCreated, user)
}

// GetProfile retrieves the authenticated user's record, mirrors included
func (h *UserHandler) GetProfile(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.Request().Context(), callerID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, user)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, user.ToCompact())
}
