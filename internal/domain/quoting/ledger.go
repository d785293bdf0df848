package quoting

import (
	"cmp"
	"slices"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
)

// Every ledger mutation below rejects non-editable quotes before touching
// any item, and finishes with RepairOrder so both partitions read 1..N.

// AddItem appends a line item for the given catalog entry at the end of its partition
func (q *Quote) AddItem(in ItemInput, refs catalog.Refs, now time.Time) (*QuoteItem, error) {
	if err := q.ensureEditable(); err != nil {
		return nil, err
	}

	ref := refs.Of(&in.CatalogItemID)
	if ref.IsDeleted() {
		return nil, shared.NewDomainError("CATALOG_ITEM_NOT_FOUND", "Catalog item does not exist")
	}

	price := ref.CatalogPrice()
	if in.Price != nil {
		price = *in.Price
	}
	if err := validateAmounts(price, in.Qty); err != nil {
		return nil, err
	}
	if err := validateFinancing(in.Frequency, in.Payments); err != nil {
		return nil, err
	}
	if err := validateAddons(in.Addons); err != nil {
		return nil, err
	}

	catalogID := in.CatalogItemID
	item := QuoteItem{
		ID:            uuid.New(),
		QuoteID:       q.ID,
		CatalogItemID: &catalogID,
		Price:         price,
		Qty:           in.Qty,
		Ord:           q.maxOrd(ref.Kind(), refs) + 1,
		Frequency:     in.Frequency,
		Payments:      in.Payments,
		Notes:         in.Notes,
		Meta:          in.Meta,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	item.SetAddons(in.Addons)

	q.Items = append(q.Items, item)
	q.RepairOrder(refs)
	q.Touch(now)

	return q.GetItem(item.ID), nil
}

// UpdateItem changes pricing, financing, notes or addons of an existing item
func (q *Quote) UpdateItem(itemID uuid.UUID, upd ItemUpdate, refs catalog.Refs, now time.Time) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	item := q.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Quote item not found")
	}

	price, qty := item.Price, item.Qty
	if upd.Price != nil {
		price = *upd.Price
	}
	if upd.Qty != nil {
		qty = *upd.Qty
	}
	if err := validateAmounts(price, qty); err != nil {
		return err
	}
	freq, payments := item.Frequency, item.Payments
	if upd.ClearFinancing {
		freq, payments = nil, nil
	}
	if upd.Frequency != nil {
		freq = upd.Frequency
	}
	if upd.Payments != nil {
		payments = upd.Payments
	}
	if err := validateFinancing(freq, payments); err != nil {
		return err
	}
	if upd.Addons != nil {
		if err := validateAddons(upd.Addons); err != nil {
			return err
		}
	}

	item.Price = price
	item.Qty = qty
	item.Frequency = freq
	item.Payments = payments
	if upd.Notes != nil {
		item.Notes = *upd.Notes
	}
	if upd.Meta != nil {
		item.Meta = upd.Meta
	}
	if upd.Addons != nil {
		item.SetAddons(upd.Addons)
	}
	item.UpdatedAt = now

	q.RepairOrder(refs)
	q.Touch(now)
	return nil
}

// RemoveItem deletes a line item and closes the gap it leaves in its partition
func (q *Quote) RemoveItem(itemID uuid.UUID, refs catalog.Refs, now time.Time) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	idx := slices.IndexFunc(q.Items, func(it QuoteItem) bool { return it.ID == itemID })
	if idx < 0 {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Quote item not found")
	}

	q.Items = slices.Delete(q.Items, idx, idx+1)
	q.RepairOrder(refs)
	q.Touch(now)
	return nil
}

// Reorder moves an item to the given 1-based position within its partition.
// Positions beyond the partition are clamped to its ends.
func (q *Quote) Reorder(itemID uuid.UUID, position int, refs catalog.Refs, now time.Time) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	item := q.GetItem(itemID)
	if item == nil {
		return shared.NewDomainError("ITEM_NOT_FOUND", "Quote item not found")
	}
	kind := refs.Of(item.CatalogItemID).Kind()
	if kind == catalog.KindDeleted {
		return shared.WrapDomainError(shared.CodeInvalidInput, "Cannot reorder an item without a catalog reference", shared.ErrMissingCatalogReference)
	}

	q.RepairOrder(refs)
	idx := q.partition(kind, refs)
	from := slices.IndexFunc(idx, func(i int) bool { return q.Items[i].ID == itemID })
	to := min(max(position, 1), len(idx)) - 1

	moved := idx[from]
	idx = slices.Delete(idx, from, from+1)
	idx = slices.Insert(idx, to, moved)
	for n, i := range idx {
		q.Items[i].Ord = n + 1
	}
	q.Touch(now)
	return nil
}

// RepairOrder renumbers each partition to 1..N keeping the current relative order.
// Items whose catalog entry is gone belong to no partition and get Ord 0.
func (q *Quote) RepairOrder(refs catalog.Refs) {
	for _, kind := range []catalog.Kind{catalog.KindService, catalog.KindProduct} {
		for n, i := range q.partition(kind, refs) {
			q.Items[i].Ord = n + 1
		}
	}
	for i := range q.Items {
		if refs.Of(q.Items[i].CatalogItemID).IsDeleted() {
			q.Items[i].Ord = 0
		}
	}
}

// ServiceItems returns the recurring items ordered by Ord
func (q *Quote) ServiceItems(refs catalog.Refs) []*QuoteItem {
	return q.itemsOf(catalog.KindService, refs)
}

// ProductItems returns the one-time items ordered by Ord
func (q *Quote) ProductItems(refs catalog.Refs) []*QuoteItem {
	return q.itemsOf(catalog.KindProduct, refs)
}

func (q *Quote) itemsOf(kind catalog.Kind, refs catalog.Refs) []*QuoteItem {
	idx := q.partition(kind, refs)
	items := make([]*QuoteItem, 0, len(idx))
	for _, i := range idx {
		items = append(items, &q.Items[i])
	}
	return items
}

// partition returns indexes into Items for one kind, stably sorted by Ord
func (q *Quote) partition(kind catalog.Kind, refs catalog.Refs) []int {
	idx := make([]int, 0, len(q.Items))
	for i := range q.Items {
		if refs.Of(q.Items[i].CatalogItemID).Kind() == kind {
			idx = append(idx, i)
		}
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(q.Items[a].Ord, q.Items[b].Ord)
	})
	return idx
}

func (q *Quote) maxOrd(kind catalog.Kind, refs catalog.Refs) int {
	highest := 0
	for _, i := range q.partition(kind, refs) {
		highest = max(highest, q.Items[i].Ord)
	}
	return highest
}
