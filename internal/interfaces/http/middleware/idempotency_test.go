package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/quoting/internal/infrastructure/cache"
	"github.com/erp/quoting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	cache.IdempotencyStore
}

func (failingStore) Reserve(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestIdempotency(t *testing.T) {
	tenantID := uuid.New()

	newRouter := func(t *testing.T, store IdempotencyStore, handler gin.HandlerFunc) *gin.Engine {
		t.Helper()
		r := gin.New()
		r.Use(Tenant(TenantConfig{}))
		r.POST("/api/v1/quotes/:id/execute", Idempotency(IdempotencyConfig{Store: store, TTL: time.Hour}), handler)
		return r
	}
	post := func(r *gin.Engine, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/q1/execute", nil)
		req.Header.Set(TenantHeaderKey, tenantID.String())
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	newStore := func(t *testing.T) *cache.InMemoryIdempotencyStore {
		s := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("replays a completed response", func(t *testing.T) {
		calls := 0
		r := newRouter(t, newStore(t), func(c *gin.Context) {
			calls++
			c.JSON(http.StatusOK, gin.H{"call": calls})
		})

		first := post(r, "k-1")
		second := post(r, "k-1")

		assert.Equal(t, 1, calls)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())
		assert.Equal(t, first.Header().Get("Content-Type"), second.Header().Get("Content-Type"))
		assert.Equal(t, "true", second.Header().Get(IdempotentReplayHeader))
	})

	t.Run("key is scoped to the tenant", func(t *testing.T) {
		store := newStore(t)
		calls := 0
		r := newRouter(t, store, func(c *gin.Context) {
			calls++
			c.Status(http.StatusOK)
		})
		post(r, "k-2")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/q1/execute", nil)
		req.Header.Set(TenantHeaderKey, uuid.NewString())
		req.Header.Set(IdempotencyKeyHeader, "k-2")
		r.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, 2, calls)
	})

	t.Run("request still running gets 409", func(t *testing.T) {
		store := newStore(t)
		storeKey := strings.Join([]string{tenantID.String(), http.MethodPost, "/api/v1/quotes/q1/execute", "k-3"}, ":")
		ok, err := store.Reserve(context.Background(), storeKey, pendingMarker, time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		r := newRouter(t, store, func(c *gin.Context) {
			t.Fatal("handler must not run")
		})
		w := post(r, "k-3")

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeRequestInProgress, resp.Error.Code)
	})

	t.Run("error response releases the key", func(t *testing.T) {
		calls := 0
		r := newRouter(t, newStore(t), func(c *gin.Context) {
			calls++
			if calls == 1 {
				c.JSON(http.StatusConflict, gin.H{"error": "locked"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		assert.Equal(t, http.StatusConflict, post(r, "k-4").Code)
		assert.Equal(t, http.StatusOK, post(r, "k-4").Code)
		assert.Equal(t, 2, calls)
	})

	t.Run("oversized key is rejected", func(t *testing.T) {
		r := newRouter(t, newStore(t), func(c *gin.Context) { t.Fatal("handler must not run") })
		w := post(r, strings.Repeat("k", maxIdempotencyKeyLength+1))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store outage runs the request unguarded", func(t *testing.T) {
		calls := 0
		r := newRouter(t, failingStore{}, func(c *gin.Context) {
			calls++
			c.Status(http.StatusOK)
		})
		assert.Equal(t, http.StatusOK, post(r, "k-5").Code)
		assert.Equal(t, 1, calls)
	})
}
