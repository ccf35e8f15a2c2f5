package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/oidc-core/internal/application/dto"
	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// AuthorizationService is implemented by service.AuthorizationAppService.
type AuthorizationService interface {
	Request(ctx context.Context, tenantID string, params models.RequestParameters) *dto.AuthorizationRequestResult
	Authorize(ctx context.Context, tenantID, requestID string, req *dto.AuthorizeRequest) *dto.AuthorizationRequestResult
	Deny(ctx context.Context, tenantID, requestID, reason string) *dto.AuthorizationRequestResult
}

// AuthorizationHandler serves the authorization endpoint and the login UI callbacks.
type AuthorizationHandler struct {
	svc    AuthorizationService
	logger logger.Logger
}

// NewAuthorizationHandler creates a new AuthorizationHandler.
func NewAuthorizationHandler(svc AuthorizationService, log logger.Logger) *AuthorizationHandler {
	return &AuthorizationHandler{svc: svc, logger: log.WithComponent("AuthorizationHandler")}
}

// Request handles GET and POST /:tenant/v1/authorizations.
// Redirectable outcomes answer 302; a request waiting for the user answers 200 with the
// registered request so the login UI can take over.
func (h *AuthorizationHandler) Request(c *gin.Context) {
	noStore(c)
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorDTO(constants.ErrCodeInvalidRequest, "malformed request parameters"))
		return
	}
	params := models.NewRequestParameters(c.Request.Form)

	result := h.svc.Request(c.Request.Context(), c.Param("tenant"), params)
	if result.IsRedirect() {
		c.Redirect(http.StatusFound, result.RedirectURI)
		return
	}
	h.writeResult(c, result)
}

// Authorize handles POST /:tenant/v1/authorizations/:id/authorize. The login UI posts the
// authenticated user and receives the location the browser must be sent to.
func (h *AuthorizationHandler) Authorize(c *gin.Context) {
	noStore(c)
	var req dto.AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug(c.Request.Context(), "invalid authorize body", logger.Err(err))
		c.JSON(http.StatusBadRequest, dto.NewErrorDTO(constants.ErrCodeInvalidRequest, "invalid authorize request body"))
		return
	}
	h.writeResult(c, h.svc.Authorize(c.Request.Context(), c.Param("tenant"), c.Param("id"), &req))
}

// Deny handles POST /:tenant/v1/authorizations/:id/deny.
func (h *AuthorizationHandler) Deny(c *gin.Context) {
	noStore(c)
	var req dto.DenyRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorDTO(constants.ErrCodeInvalidRequest, "invalid deny request body"))
		return
	}
	h.writeResult(c, h.svc.Deny(c.Request.Context(), c.Param("tenant"), c.Param("id"), req.Reason))
}

func (h *AuthorizationHandler) writeResult(c *gin.Context, result *dto.AuthorizationRequestResult) {
	switch result.Status {
	case dto.AuthorizationStatusBadRequest:
		c.JSON(http.StatusBadRequest, h.errorBody(c, result))
	case dto.AuthorizationStatusServerError:
		c.JSON(http.StatusInternalServerError, h.errorBody(c, result))
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (h *AuthorizationHandler) errorBody(c *gin.Context, result *dto.AuthorizationRequestResult) *dto.ErrorDTO {
	return &dto.ErrorDTO{
		Error:            result.Error,
		ErrorDescription: result.ErrorDescription,
		TraceID:          c.GetString(string(constants.ContextKeyTraceID)),
	}
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
