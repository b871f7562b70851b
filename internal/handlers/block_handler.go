package handlers

import (
	"net/http"

	"github.com/anonto42/freelink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// BlockHandler handles block/unblock HTTP requests
type BlockHandler struct {
	blocks *services.BlockService
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(blocks *services.BlockService) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

// RegisterBlockRoutes registers block routes
func (h *BlockHandler) RegisterBlockRoutes(g *echo.Group) {
	g.POST("/users/:id/block", h.BlockUser)
	g.DELETE("/users/:id/block", h.UnblockUser)
	g.GET("/users/:id/block", h.GetBlockStatus)
}

func (h *BlockHandler) BlockUser(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	if err := h.blocks.Block(c.Request().Context(), callerID, c.Param("id")); err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"blocked": true})
}

func (h *BlockHandler) UnblockUser(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	if err := h.blocks.Unblock(c.Request().Context(), callerID, c.Param("id")); err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"blocked": false})
}

// GetBlockStatus reports the caller's block on the user and whether the two can message
func (h *BlockHandler) GetBlockStatus(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	otherID := c.Param("id")

	blocked, err := h.blocks.IsBlocked(ctx, callerID, otherID)
	if err != nil {
		return respondError(err)
	}
	allowed, err := h.blocks.IsMessagingAllowed(ctx, callerID, otherID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, echo.Map{"blocked": blocked, "messagingAllowed": allowed})
}
