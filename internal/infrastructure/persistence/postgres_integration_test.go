//go:build integration

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/erp/quoting/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newPostgresDB starts a PostgreSQL container and applies the embedded migrations
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("quoting_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	return db
}

func TestPostgres_QuoteLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newPostgresDB(t)
	repo := NewGormQuoteRepository(db)

	account := seedAccount(t, db, "TX")
	svc := seedCatalogItem(t, db, catalog.ItemTypeService, 100)
	refs := catalog.NewRefs(svc)

	q := newDraftQuote(t, account)
	_, err := q.AddItem(quoting.ItemInput{CatalogItemID: svc.ID, Qty: decimal.NewFromInt(3)}, refs, testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, q))

	t.Run("round trip", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, testTenantID, q.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.True(t, decimal.NewFromInt(3).Equal(found.Items[0].Qty))
	})

	t.Run("row lock serializes concurrent transactions", func(t *testing.T) {
		scope := NewGormTransactionScope(db)
		var wg sync.WaitGroup
		order := make(chan int, 2)
		locked := make(chan struct{})

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.Transaction(func(tx *gorm.DB) error {
				if _, err := NewGormQuoteRepository(tx).FindByIDForUpdate(ctx, testTenantID, q.ID); err != nil {
					return err
				}
				close(locked)
				time.Sleep(200 * time.Millisecond)
				order <- 1
				return nil
			})
		}()

		<-locked
		err := scope.Execute(ctx, func(repos appquoting.TransactionalRepositories) error {
			if _, err := repos.QuoteRepo().FindByIDForUpdate(ctx, testTenantID, q.ID); err != nil {
				return err
			}
			order <- 2
			return nil
		})
		require.NoError(t, err)
		wg.Wait()
		close(order)

		var got []int
		for v := range order {
			got = append(got, v)
		}
		assert.Equal(t, []int{1, 2}, got)
	})

	t.Run("soft delete hides the quote", func(t *testing.T) {
		require.NoError(t, repo.DeleteForTenant(ctx, testTenantID, q.ID))
		_, err := repo.FindByIDForTenant(ctx, testTenantID, q.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
