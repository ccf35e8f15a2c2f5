package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/oidc-core/internal/application/dto"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// LogoutService is implemented by service.LogoutAppService.
type LogoutService interface {
	Logout(ctx context.Context, tenantID, opSessionID string) (*dto.LogoutResponse, error)
	ReceiveBackChannelLogout(ctx context.Context, tenantID, logoutToken string) *dto.BackChannelLogoutResult
}

// LogoutHandler serves RP-facing logout and the back-channel logout receiver.
type LogoutHandler struct {
	svc    LogoutService
	logger logger.Logger
}

// NewLogoutHandler creates a new LogoutHandler.
func NewLogoutHandler(svc LogoutService, log logger.Logger) *LogoutHandler {
	return &LogoutHandler{svc: svc, logger: log.WithComponent("LogoutHandler")}
}

// Logout handles POST /:tenant/v1/logout. Browsers asking for HTML get the front-channel
// iframe page; other callers get the JSON summary.
func (h *LogoutHandler) Logout(c *gin.Context) {
	noStore(c)
	var req dto.LogoutRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorDTO(constants.ErrCodeInvalidRequest, "op_session_id is required"))
		return
	}

	resp, err := h.svc.Logout(c.Request.Context(), c.Param("tenant"), req.OPSessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if cbcErr, ok := errors.AsCBCError(err); ok {
			status = cbcErr.HTTPStatus()
		}
		c.JSON(status, dto.ErrorDTOFromError(err, c.GetString(string(constants.ContextKeyTraceID))))
		return
	}

	if resp.FrontChannelHTML != "" && acceptsHTML(c) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(resp.FrontChannelHTML))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BackChannelLogout handles POST /:tenant/v1/backchannel-logout, the OIDC Back-Channel Logout
// receiver for the tenant's upstream provider.
func (h *LogoutHandler) BackChannelLogout(c *gin.Context) {
	noStore(c)
	var req dto.BackChannelLogoutRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorDTO(constants.ErrCodeInvalidRequest, "logout_token is required"))
		return
	}

	result := h.svc.ReceiveBackChannelLogout(c.Request.Context(), c.Param("tenant"), req.LogoutToken)
	if result.StatusCode == http.StatusOK {
		c.JSON(http.StatusOK, result)
		return
	}
	c.JSON(result.StatusCode, &dto.ErrorDTO{Error: result.Error, ErrorDescription: result.ErrorDescription})
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
