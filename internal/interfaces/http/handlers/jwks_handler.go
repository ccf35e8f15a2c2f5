package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/oidc-core/internal/application/dto"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// JWKSProvider is implemented by crypto.KeyManager.
type JWKSProvider interface {
	PublicJWKS(ctx context.Context, tenantID string) (string, error)
}

// JWKSHandler publishes the tenant's verification keys so clients can check ID tokens,
// JARM responses and logout tokens.
type JWKSHandler struct {
	keys   JWKSProvider
	logger logger.Logger
}

func NewJWKSHandler(keys JWKSProvider, log logger.Logger) *JWKSHandler {
	return &JWKSHandler{keys: keys, logger: log.WithComponent("JWKSHandler")}
}

// GetJWKS handles GET /:tenant/v1/jwks.
func (h *JWKSHandler) GetJWKS(c *gin.Context) {
	tenantID := c.Param("tenant")
	jwks, err := h.keys.PublicJWKS(c.Request.Context(), tenantID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, dto.NewErrorDTO(constants.ErrCodeNotFound, "no signing key for tenant"))
			return
		}
		h.logger.Error(c.Request.Context(), "failed to render JWKS", err, logger.String("tenant_id", tenantID))
		c.JSON(http.StatusInternalServerError, dto.ErrorDTOFromError(err, c.GetString(string(constants.ContextKeyTraceID))))
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/jwk-set+json", []byte(jwks))
}
