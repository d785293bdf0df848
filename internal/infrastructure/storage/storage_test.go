package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestMemoryFileStorage_Store(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFileStorage()
	owner := uuid.New()

	t.Run("sniffs the content type when none is declared", func(t *testing.T) {
		id, err := s.Store(ctx, "signature", "", pngSignature, owner)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, owner.String()+"/"))
		assert.True(t, strings.HasSuffix(id, ".png"))

		f, ok := s.Get(id)
		require.True(t, ok)
		assert.Equal(t, "image/png", f.ContentType)
		assert.Equal(t, owner, f.OwnerID)
	})

	t.Run("keeps a declared type and extension", func(t *testing.T) {
		id, err := s.Store(ctx, "contract.PDF", "application/pdf", []byte("%PDF-1.4"), owner)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(id, ".pdf"))
		f, _ := s.Get(id)
		assert.Equal(t, "application/pdf", f.ContentType)
		assert.Equal(t, "contract.PDF", f.Name)
	})

	t.Run("rejects empty files", func(t *testing.T) {
		_, err := s.Store(ctx, "empty.png", "image/png", nil, owner)
		assert.Error(t, err)
	})

	assert.Equal(t, 2, s.Len())
}

func TestNewS3FileStorage_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3FileStorage(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3FileStorage(ctx, &config.StorageConfig{Type: "s3"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		s, err := NewS3FileStorage(ctx, &config.StorageConfig{
			Type:            "s3",
			Bucket:          "contracts",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "localhost:9000",
			UsePathStyle:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "contracts", s.Bucket())
	})
}

func TestS3FileStorage_Store(t *testing.T) {
	var (
		mu          sync.Mutex
		gotPath     string
		gotType     string
		gotBodySize int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBodySize = len(body)
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx := context.Background()
	s, err := NewS3FileStorage(ctx, &config.StorageConfig{
		Type:            "s3",
		Bucket:          "contracts",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        server.URL,
		UsePathStyle:    true,
		KeyPrefix:       "/signatures/",
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	owner := uuid.New()
	id, err := s.Store(ctx, "sig.png", "image/png", pngSignature, owner)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "signatures/"+owner.String()+"/"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/contracts/"+id, gotPath)
	assert.Equal(t, "image/png", gotType)
	assert.NotZero(t, gotBodySize)
}
