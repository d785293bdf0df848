package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTracedDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{}, zap.NewNop())
	require.NoError(t, plugin.Register(db))
	assert.Nil(t, db.Callback().Query().Get("otel_timing:after_query"))
}

func TestDBTracingPlugin_Defaults(t *testing.T) {
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, plugin.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", plugin.config.DBSystem)
}

func TestDBTracingPlugin_MarksSlowQueries(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	db := setupTracedDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.Register(db))

	ctx, span := tp.Tracer("test").Start(context.Background(), "repository")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "quote"}).Error)
	var row tracedRow
	require.NoError(t, db.WithContext(ctx).First(&row).Error)
	span.End()

	spans := sr.Ended()
	require.NotEmpty(t, spans)
	slow := false
	for _, s := range spans {
		for _, a := range s.Attributes() {
			if a.Key == "db.slow_query" && a.Value.AsBool() {
				slow = true
			}
		}
	}
	assert.True(t, slow)
}
