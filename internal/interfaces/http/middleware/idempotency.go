package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/erp/quoting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Idempotency headers
const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"
)

const (
	maxIdempotencyKeyLength = 255
	pendingMarker           = "pending"
)

// IdempotencyStore holds reserved keys and completed responses
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store  IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// storedResponse is a completed response kept for replay
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter copies the response body while it is written
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes a request carrying an Idempotency-Key run at most once per
// tenant, route and key. A repeat of a completed 2xx request gets the stored
// response; a repeat while the first is still running gets 409. Failed
// requests release the key so the client can retry. Requests without the
// header pass through.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" || cfg.Store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortIdempotency(c, http.StatusBadRequest, dto.ErrCodeIdempotencyKeyInvalid, "Idempotency-Key is too long")
			return
		}

		tenantID, _ := GetTenantID(c)
		storeKey := strings.Join([]string{tenantID.String(), c.Request.Method, c.Request.URL.Path, key}, ":")
		ctx := c.Request.Context()

		reserved, err := cfg.Store.Reserve(ctx, storeKey, pendingMarker, cfg.TTL)
		if err != nil {
			log.Warn("Idempotency store unavailable, running request unguarded",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replay(c, cfg.Store, storeKey, log)
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// the request context may already be done; the key must still be settled
		settleCtx := context.WithoutCancel(ctx)
		status := w.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			if err := cfg.Store.Delete(settleCtx, storeKey); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}
		stored, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err == nil {
			err = cfg.Store.Set(settleCtx, storeKey, string(stored), cfg.TTL)
		}
		if err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store IdempotencyStore, storeKey string, log *zap.Logger) {
	value, found, err := store.Get(c.Request.Context(), storeKey)
	if err != nil {
		log.Warn("Failed to read idempotent response", zap.Error(err))
	}
	if err != nil || !found || value == pendingMarker {
		abortIdempotency(c, http.StatusConflict, dto.ErrCodeRequestInProgress,
			"A request with this Idempotency-Key is still in progress")
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		log.Warn("Discarding unreadable idempotent response", zap.Error(err))
		abortIdempotency(c, http.StatusConflict, dto.ErrCodeRequestInProgress,
			"A request with this Idempotency-Key is still in progress")
		return
	}
	c.Header(IdempotentReplayHeader, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
}

func abortIdempotency(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, c.GetString(RequestIDKey)))
}
