package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware(log), Recovery(log))
	return router
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs request and echoes request id", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		router := newRouter(zap.New(core))

		var ctxRequestID string
		router.GET("/quotes", func(c *gin.Context) {
			ctxRequestID = RequestID(c.Request.Context())
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/quotes?status=DRAFT", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-42", ctxRequestID)

		entries := recorded.FilterMessage("HTTP Request").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-42", fields["request_id"])
		assert.Equal(t, "status=DRAFT", fields["query"])
	})

	t.Run("generates request id when absent", func(t *testing.T) {
		router := newRouter(zap.NewNop())
		router.GET("/quotes", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quotes", nil))
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("client errors log at warn", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		router := newRouter(zap.New(core))
		router.GET("/quotes/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quotes/x", nil))

		entries := recorded.FilterMessage("HTTP Request").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	router := newRouter(zap.New(core))
	router.GET("/boom", func(c *gin.Context) { panic("renderer exploded") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}
