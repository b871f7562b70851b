package handlers

import (
	"net/http"

	"github.com/anonto42/freelink/backend/internal/middleware"
	"github.com/anonto42/freelink/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

var statusByCode = map[apperrors.Code]int{
	apperrors.CodeValidation:     http.StatusBadRequest,
	apperrors.CodeInvalidState:   http.StatusConflict,
	apperrors.CodeUnauthorized:   http.StatusForbidden,
	apperrors.CodeNotFound:       http.StatusNotFound,
	apperrors.CodeInfrastructure: http.StatusServiceUnavailable,
}

// respondError maps an engine error onto an HTTP error with a stable code.
func respondError(err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = &apperrors.AppError{Code: apperrors.CodeInfrastructure, Message: "internal error", Cause: err}
	}
	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	if appErr.Code == apperrors.CodeInfrastructure {
		message = "service temporarily unavailable, retry the request"
	}
	return echo.NewHTTPError(status, echo.Map{
		"success": false,
		"code":    appErr.Code,
		"message": message,
	}).SetInternal(err)
}

// getUserIDFromContext returns the caller id set by the auth middleware.
func getUserIDFromContext(c echo.Context) string {
	return middleware.CallerID(c)
}

func requireCaller(c echo.Context) (string, error) {
	id := getUserIDFromContext(c)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

// bindAndValidate decodes the JSON body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return respondError(err)
	}
	return nil
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}
