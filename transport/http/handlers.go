package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/rotor/core"
)

// Client-facing failure bodies. The specific cause is never returned.
const (
	MsgNoToken       = "Error: No refresh token provided"
	MsgInvalidToken  = "Error: Failed to validate refresh token"
	MsgInternalError = "Error: Internal server error"
)

// Refresher exchanges refresh tokens
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string, provided bool) (*core.RefreshResult, error)
}

// RefreshResponse is the body of a successful exchange
type RefreshResponse struct {
	UserID                string `json:"user_id"`
	AuthToken             string `json:"auth_token"`
	RefreshToken          string `json:"refresh_token"`
	AuthTokenExpiresIn    int64  `json:"auth_token_expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

// RefreshHandlers contains HTTP handlers for the token exchange
type RefreshHandlers struct {
	service Refresher
	logger  *zap.Logger
}

// NewRefreshHandlers creates new refresh handlers
func NewRefreshHandlers(service Refresher, logger *zap.Logger) *RefreshHandlers {
	return &RefreshHandlers{
		service: service,
		logger:  logger,
	}
}

// Refresh handles the token exchange
func (h *RefreshHandlers) Refresh(c *gin.Context) {
	token, provided := c.GetQuery("refresh_token")
	result, err := h.service.Refresh(c.Request.Context(), token, provided)
	if err != nil {
		status, msg := errorResponse(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("refresh failed",
				zap.String("request_id", RequestIDFrom(c)),
				zap.String("kind", core.Reason(err)),
				zap.Error(err),
			)
		}
		c.String(status, msg)
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		UserID:                result.UserID,
		AuthToken:             result.AccessToken,
		RefreshToken:          result.RefreshToken,
		AuthTokenExpiresIn:    result.AccessTokenExpiresIn,
		RefreshTokenExpiresIn: result.RefreshTokenExpiresIn,
	})
}

// Preflight answers CORS preflight requests
func (h *RefreshHandlers) Preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Health reports liveness
func (h *RefreshHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNoTokenProvided):
		return http.StatusUnauthorized, MsgNoToken
	case core.IsUpstream(err), errors.Is(err, core.ErrIssueToken):
		return http.StatusInternalServerError, MsgInternalError
	default:
		return http.StatusUnauthorized, MsgInvalidToken
	}
}
