package handlers

import (
	"net/http"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// RelationshipHandler exposes the caller's relationship mirrors
type RelationshipHandler struct {
	users      *services.UserService
	blocks     *services.BlockService
	projection *services.ProjectionManager
}

// NewRelationshipHandler creates a new RelationshipHandler
func NewRelationshipHandler(users *services.UserService, blocks *services.BlockService, projection *services.ProjectionManager) *RelationshipHandler {
	return &RelationshipHandler{users: users, blocks: blocks, projection: projection}
}

// RegisterRelationshipRoutes registers relationship routes
func (h *RelationshipHandler) RegisterRelationshipRoutes(g *echo.Group) {
	g.GET("/relationships", h.GetRelationships)
	g.POST("/relationships/reconcile", h.Reconcile)
}

// GetRelationships lists accepted freelancers for employers and linked
// employers for freelancers, hiding blocked counterparts.
func (h *RelationshipHandler) GetRelationships(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	role, entries, err := h.blocks.VisibleRelationships(c.Request().Context(), callerID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"role": role, "relationships": entries})
}

// Reconcile repairs the caller's mirrors on demand
func (h *RelationshipHandler) Reconcile(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user, err := h.users.Get(ctx, callerID)
	if err != nil {
		return respondError(err)
	}
	var report *models.ReconcileReport
	if user.Role == models.RoleEmployer {
		report, err = h.projection.Reconcile(ctx, callerID)
	} else {
		report, err = h.projection.ReconcileFreelancer(ctx, callerID)
	}
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, report)
}
