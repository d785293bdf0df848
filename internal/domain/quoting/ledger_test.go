package quoting

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordsOf(items []*QuoteItem) []int {
	ords := make([]int, 0, len(items))
	for _, it := range items {
		ords = append(ords, it.Ord)
	}
	return ords
}

func assertContiguous(t *testing.T, q *Quote, refs catalog.Refs) {
	t.Helper()
	for _, part := range [][]*QuoteItem{q.ServiceItems(refs), q.ProductItems(refs)} {
		for i, it := range part {
			assert.Equal(t, i+1, it.Ord)
		}
	}
}

func TestQuote_AddItem(t *testing.T) {
	now := time.Now()
	svc := serviceItem(100)
	prd := productItem(50)
	refs := catalog.NewRefs(svc, prd)

	q := newAccountQuote(t)

	s1, err := q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: dec("2")}, refs, now)
	require.NoError(t, err)
	p1, err := q.AddItem(ItemInput{CatalogItemID: prd.ID, Price: ptr(dec("45")), Qty: dec("1")}, refs, now)
	require.NoError(t, err)
	s2, err := q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: dec("1")}, refs, now)
	require.NoError(t, err)

	assert.Equal(t, 1, s1.Ord)
	assert.Equal(t, 1, p1.Ord)
	assert.Equal(t, 2, s2.Ord)
	assert.True(t, s1.Price.Equal(dec("100")), "price defaults to catalog price")
	assert.True(t, p1.Price.Equal(dec("45")), "quoted price overrides catalog")

	t.Run("unknown catalog item is rejected", func(t *testing.T) {
		_, err := q.AddItem(ItemInput{CatalogItemID: uuid.New(), Qty: dec("1")}, refs, now)
		assert.Error(t, err)
		assert.Len(t, q.Items, 3)
	})

	t.Run("non-positive qty is rejected", func(t *testing.T) {
		_, err := q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: decimal.Zero}, refs, now)
		assert.Error(t, err)
	})

	t.Run("addons roll up into addon total", func(t *testing.T) {
		item, err := q.AddItem(ItemInput{
			CatalogItemID: svc.ID,
			Qty:           dec("1"),
			Addons: []Addon{
				{Name: "Static IP", Price: dec("5"), Qty: dec("2")},
				{Name: "Support", Price: dec("7.5"), Qty: dec("1")},
			},
		}, refs, now)
		require.NoError(t, err)
		assert.True(t, item.AddonTotal.Equal(dec("17.5")))
		assert.True(t, item.LineTotal().Equal(dec("117.5")))
	})
}

func TestQuote_RemoveItemRepairsOrder(t *testing.T) {
	now := time.Now()
	svc := serviceItem(10)
	refs := catalog.NewRefs(svc)
	q := newAccountQuote(t)

	var ids []uuid.UUID
	for range 4 {
		it, err := q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: dec("1")}, refs, now)
		require.NoError(t, err)
		ids = append(ids, it.ID)
	}

	require.NoError(t, q.RemoveItem(ids[1], refs, now))

	services := q.ServiceItems(refs)
	assert.Equal(t, []int{1, 2, 3}, ordsOf(services))
	assert.Equal(t, ids[0], services[0].ID)
	assert.Equal(t, ids[2], services[1].ID)
	assert.Equal(t, ids[3], services[2].ID)

	assert.Error(t, q.RemoveItem(uuid.New(), refs, now))
}

func TestQuote_Reorder(t *testing.T) {
	now := time.Now()
	svc := serviceItem(10)
	prd := productItem(10)
	refs := catalog.NewRefs(svc, prd)
	q := newAccountQuote(t)

	var ids []uuid.UUID
	for range 4 {
		it, err := q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: dec("1")}, refs, now)
		require.NoError(t, err)
		ids = append(ids, it.ID)
	}
	p, err := q.AddItem(ItemInput{CatalogItemID: prd.ID, Qty: dec("1")}, refs, now)
	require.NoError(t, err)
	productID := p.ID

	require.NoError(t, q.Reorder(ids[3], 1, refs, now))

	services := q.ServiceItems(refs)
	got := make([]uuid.UUID, 0, len(services))
	for _, s := range services {
		got = append(got, s.ID)
	}
	assert.Equal(t, []uuid.UUID{ids[3], ids[0], ids[1], ids[2]}, got)
	assertContiguous(t, q, refs)
	assert.Equal(t, 1, q.GetItem(productID).Ord, "other partition untouched")

	t.Run("position is clamped", func(t *testing.T) {
		require.NoError(t, q.Reorder(ids[3], 99, refs, now))
		services := q.ServiceItems(refs)
		assert.Equal(t, ids[3], services[len(services)-1].ID)
		assertContiguous(t, q, refs)
	})
}

func TestQuote_DeletedCatalogItemsLeaveOrdering(t *testing.T) {
	now := time.Now()
	svc := serviceItem(10)
	gone := serviceItem(10)
	q := newAccountQuote(t)

	all := catalog.NewRefs(svc, gone)
	_, err := q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: dec("1")}, all, now)
	require.NoError(t, err)
	orphan, err := q.AddItem(ItemInput{CatalogItemID: gone.ID, Qty: dec("1")}, all, now)
	require.NoError(t, err)
	orphanID := orphan.ID
	_, err = q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: dec("1")}, all, now)
	require.NoError(t, err)

	// catalog entry deleted afterwards
	remaining := catalog.NewRefs(svc)
	q.RepairOrder(remaining)

	assert.Equal(t, []int{1, 2}, ordsOf(q.ServiceItems(remaining)))
	assert.Equal(t, 0, q.GetItem(orphanID).Ord)

	err = q.Reorder(orphanID, 1, remaining, now)
	assert.True(t, errors.Is(err, shared.ErrMissingCatalogReference))
}

func TestQuote_UpdateItem(t *testing.T) {
	now := time.Now()
	prd := productItem(50)
	refs := catalog.NewRefs(prd)
	q := newAccountQuote(t)
	item, err := q.AddItem(ItemInput{CatalogItemID: prd.ID, Qty: dec("1")}, refs, now)
	require.NoError(t, err)
	id := item.ID

	monthly := catalog.FrequencyMonthly
	require.NoError(t, q.UpdateItem(id, ItemUpdate{
		Price:     ptr(dec("60")),
		Qty:       ptr(dec("3")),
		Frequency: &monthly,
		Payments:  ptr(3),
		Notes:     ptr("financed"),
	}, refs, now))

	updated := q.GetItem(id)
	assert.True(t, updated.Price.Equal(dec("60")))
	assert.True(t, updated.IsFinanced())
	assert.Equal(t, "financed", updated.Notes)

	t.Run("invalid update leaves the item unchanged", func(t *testing.T) {
		err := q.UpdateItem(id, ItemUpdate{Price: ptr(dec("-1")), Notes: ptr("nope")}, refs, now)
		assert.Error(t, err)
		assert.True(t, q.GetItem(id).Price.Equal(dec("60")))
		assert.Equal(t, "financed", q.GetItem(id).Notes)
	})

	t.Run("clear financing", func(t *testing.T) {
		require.NoError(t, q.UpdateItem(id, ItemUpdate{ClearFinancing: true}, refs, now))
		assert.False(t, q.GetItem(id).IsFinanced())
	})
}

func TestQuote_LockedLedgerIsUnchanged(t *testing.T) {
	now := time.Now()
	svc := serviceItem(10)
	refs := catalog.NewRefs(svc)
	q := newAccountQuote(t)
	item, err := q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: dec("1")}, refs, now)
	require.NoError(t, err)
	id := item.ID
	q.ActivatedOn = &now

	before := slices.Clone(q.Items)

	_, err = q.AddItem(ItemInput{CatalogItemID: svc.ID, Qty: dec("1")}, refs, now)
	assert.True(t, errors.Is(err, shared.ErrEditingLocked))
	assert.True(t, errors.Is(q.RemoveItem(id, refs, now), shared.ErrEditingLocked))
	assert.True(t, errors.Is(q.Reorder(id, 1, refs, now), shared.ErrEditingLocked))
	assert.True(t, errors.Is(q.UpdateItem(id, ItemUpdate{Qty: ptr(dec("5"))}, refs, now), shared.ErrEditingLocked))
	assert.True(t, errors.Is(q.MarkSent(now), shared.ErrEditingLocked))

	assert.Equal(t, before, q.Items)
}

func TestQuote_OrderingStaysContiguous(t *testing.T) {
	now := time.Now()
	svc := serviceItem(10)
	prd := productItem(10)
	refs := catalog.NewRefs(svc, prd)
	q := newAccountQuote(t)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 200; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(q.Items) == 0:
			target := svc.ID
			if rng.Intn(2) == 0 {
				target = prd.ID
			}
			_, err := q.AddItem(ItemInput{CatalogItemID: target, Qty: dec("1")}, refs, now)
			require.NoError(t, err)
		case op == 1:
			victim := q.Items[rng.Intn(len(q.Items))].ID
			require.NoError(t, q.RemoveItem(victim, refs, now))
		default:
			moved := q.Items[rng.Intn(len(q.Items))].ID
			require.NoError(t, q.Reorder(moved, rng.Intn(len(q.Items)+2), refs, now))
		}
		assertContiguous(t, q, refs)
	}
}
