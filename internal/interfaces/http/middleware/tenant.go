package middleware

import (
	"strings"

	"github.com/erp/quoting/internal/infrastructure/logger"
	"github.com/erp/quoting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys shared by the middleware chain
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
	RequestIDKey    = "request_id"
)

// TenantConfig holds configuration for tenant middleware
type TenantConfig struct {
	// SkipPaths are paths that don't require tenant context (e.g., health check)
	SkipPaths []string
	// DefaultTenantID is used when the header is absent; uuid.Nil makes the header mandatory
	DefaultTenantID uuid.UUID
	Logger          *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready"},
	}
}

// Tenant resolves the tenant from the X-Tenant-ID header and stores it on
// both the gin context and the request context.
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		tenantID := cfg.DefaultTenantID
		if header := c.GetHeader(TenantHeaderKey); header != "" {
			id, err := uuid.Parse(header)
			if err != nil {
				abortTenant(c, dto.ErrCodeTenantInvalid, "Invalid tenant ID format")
				return
			}
			tenantID = id
		}
		if tenantID == uuid.Nil {
			abortTenant(c, dto.ErrCodeTenantRequired, "Tenant identification required")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		if cfg.Logger != nil {
			cfg.Logger.Debug("Tenant identified", zap.String("tenant_id", tenantID.String()))
		}
		c.Next()
	}
}

func abortTenant(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, c.GetString(RequestIDKey)))
}

// GetTenantID retrieves the tenant ID set by Tenant
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
