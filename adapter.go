package sitecms

import (
	"context"

	"github.com/eringen/sitecms/content"
	"github.com/eringen/sitecms/editor"
)

// StoreAdapter lets in-process editor sessions persist one resource straight
// to the Store. Every write invalidates the page cache entry, since a save
// keeps the stored status and may change a live page.
type StoreAdapter struct {
	store    *Store
	resource string
	cache    PageCache
}

var _ editor.Adapter = (*StoreAdapter)(nil)

// NewStoreAdapter returns an adapter for documents of resource. cache may
// be nil.
func NewStoreAdapter(store *Store, resource string, cache PageCache) *StoreAdapter {
	return &StoreAdapter{store: store, resource: resource, cache: cache}
}

func (a *StoreAdapter) Fetch(ctx context.Context, id string) (content.Document, error) {
	return a.store.GetDocument(ctx, a.resource, id)
}

func (a *StoreAdapter) Save(ctx context.Context, doc content.Document, _ editor.SaveMode) (editor.SavedDocument, error) {
	doc.Resource = a.resource
	saved, err := a.store.SaveDocument(ctx, doc)
	if err != nil {
		return editor.SavedDocument{}, err
	}
	a.invalidate(ctx, doc.ID)
	return saved, nil
}

func (a *StoreAdapter) Publish(ctx context.Context, id string) error {
	if err := a.store.PublishDocument(ctx, a.resource, id); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

func (a *StoreAdapter) DeleteItem(ctx context.Context, ref editor.CollectionRef, itemID string) error {
	if err := a.store.DeleteItem(ctx, a.resource, ref.DocumentID, ref.Collection, itemID); err != nil {
		return err
	}
	a.invalidate(ctx, ref.DocumentID)
	return nil
}

func (a *StoreAdapter) invalidate(ctx context.Context, id string) {
	if a.cache != nil {
		a.cache.Invalidate(ctx, a.resource, id)
	}
}
