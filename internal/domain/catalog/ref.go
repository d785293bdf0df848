package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the tag of a catalog reference as seen from a line item
type Kind int

const (
	KindDeleted Kind = iota
	KindService
	KindProduct
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindService:
		return "service"
	case KindProduct:
		return "product"
	default:
		return "deleted"
	}
}

// Ref is a tagged variant over {Service, Product, Deleted}.
// The zero value is a Deleted reference.
type Ref struct {
	kind Kind
	item *Item
}

// RefOf builds the reference for a resolved item; nil yields Deleted
func RefOf(item *Item) Ref {
	if item == nil {
		return Ref{kind: KindDeleted}
	}
	switch item.Type {
	case ItemTypeService:
		return Ref{kind: KindService, item: item}
	case ItemTypeProduct:
		return Ref{kind: KindProduct, item: item}
	}
	return Ref{kind: KindDeleted}
}

// Deleted returns a reference to a catalog entry that no longer exists
func Deleted() Ref {
	return Ref{kind: KindDeleted}
}

// Kind returns the variant tag
func (r Ref) Kind() Kind {
	return r.kind
}

// Item returns the referenced catalog item and whether it exists
func (r Ref) Item() (*Item, bool) {
	return r.item, r.kind != KindDeleted
}

// IsDeleted reports whether the catalog entry is gone
func (r Ref) IsDeleted() bool {
	return r.kind == KindDeleted
}

// Taxable reports whether the item is taxable; deleted references never are
func (r Ref) Taxable() bool {
	return r.kind != KindDeleted && r.item.Taxable
}

// CatalogPrice returns the catalog unit price; zero for deleted references
func (r Ref) CatalogPrice() decimal.Decimal {
	if r.kind == KindDeleted {
		return decimal.Zero
	}
	return r.item.Price
}

// Refs maps catalog item IDs to their resolved references
type Refs map[uuid.UUID]Ref

// Of returns the reference for the given ID; nil or unknown IDs are Deleted
func (r Refs) Of(id *uuid.UUID) Ref {
	if id == nil {
		return Deleted()
	}
	ref, ok := r[*id]
	if !ok {
		return Deleted()
	}
	return ref
}

// Resolve looks up all given IDs in the tenant's catalog and returns a Refs map covering every one of them
func Resolve(ctx context.Context, provider Provider, tenantID uuid.UUID, ids []uuid.UUID) (Refs, error) {
	refs := make(Refs, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}
	items, err := provider.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		refs[id] = RefOf(items[id])
	}
	return refs, nil
}

// NewRefs builds a Refs map directly from items, mostly useful in tests
func NewRefs(items ...*Item) Refs {
	refs := make(Refs, len(items))
	for _, item := range items {
		refs[item.ID] = RefOf(item)
	}
	return refs
}
