package router

import (
	"time"

	"github.com/erp/quoting/internal/infrastructure/logger"
	"github.com/erp/quoting/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RootRegistrar registers routes outside the versioned API group
type RootRegistrar interface {
	RegisterRoutes(r gin.IRoutes)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	tenant     *middleware.TenantConfig
	registrars []RouteRegistrar
	root       []RootRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithTenant resolves the tenant on every versioned API route
func WithTenant(cfg middleware.TenantConfig) RouterOption {
	return func(r *Router) {
		r.tenant = &cfg
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// RegisterRoot adds a registrar mounted at the engine root
func (r *Router) RegisterRoot(registrar RootRegistrar) *Router {
	r.root = append(r.root, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	for _, registrar := range r.root {
		registrar.RegisterRoutes(r.engine)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	if r.tenant != nil {
		api.Use(middleware.Tenant(*r.tenant))
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// EngineConfig configures the middleware chain of the HTTP engine
type EngineConfig struct {
	ServiceName  string
	Mode         string
	MaxBodyBytes int64
	// RequestTimeout puts a deadline on every request context; zero disables it
	RequestTimeout time.Duration
	// CORS is applied when set
	CORS *middleware.CORSConfig
	// Security headers are applied when set
	Security *middleware.SecurityConfig
	// Tracing installs the otelgin middleware and span enrichment
	Tracing bool
	// Meter records HTTP server metrics when set
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewEngine builds a gin engine with the standard middleware chain:
// request logging and panic recovery, then the optional security headers,
// CORS, tracing, metrics, request deadline and body limit
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(logger.GinMiddleware(log), logger.Recovery(log))

	if cfg.Security != nil {
		engine.Use(middleware.Secure(*cfg.Security))
	}
	if cfg.CORS != nil {
		engine.Use(middleware.CORS(*cfg.CORS))
	}

	if cfg.Tracing {
		engine.Use(middleware.Tracing(cfg.ServiceName), middleware.SpanEnricher())
	}
	if cfg.Meter != nil {
		metricsMiddleware, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metricsMiddleware)
	}
	if cfg.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	return engine, nil
}
