package repository

import (
	"context"
	"fmt"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/ports"
)

// SiteContentRepositoryImpl implements the SiteContentRepository interface
type SiteContentRepositoryImpl struct {
	store ports.DocumentStore
}

// NewSiteContentRepository creates a new site content repository
func NewSiteContentRepository(store ports.DocumentStore) ports.SiteContentRepository {
	return &SiteContentRepositoryImpl{store: store}
}

func (r *SiteContentRepositoryImpl) Get(ctx context.Context) (entities.SiteContent, error) {
	var content entities.SiteContent
	if _, err := r.store.Load(ctx, entities.ContentDocument, &content); err != nil {
		return nil, fmt.Errorf("get site content: %w", err)
	}

	if content == nil {
		content = entities.SiteContent{}
	}

	return content, nil
}

// Replace overwrites the whole document
func (r *SiteContentRepositoryImpl) Replace(ctx context.Context, content entities.SiteContent) error {
	if content == nil {
		content = entities.SiteContent{}
	}

	if err := r.store.Save(ctx, entities.ContentDocument, content); err != nil {
		return fmt.Errorf("replace site content: %w", err)
	}

	return nil
}

// CollectionRepositoryImpl implements the CollectionRepository interface
type CollectionRepositoryImpl struct {
	store      ports.DocumentStore
	collection entities.Collection
	ids        *IDGenerator
}

// NewCollectionRepository creates a repository over one collection document
func NewCollectionRepository(store ports.DocumentStore, collection entities.Collection, ids *IDGenerator) ports.CollectionRepository {
	return &CollectionRepositoryImpl{
		store:      store,
		collection: collection,
		ids:        ids,
	}
}

func (r *CollectionRepositoryImpl) List(ctx context.Context) ([]entities.Record, error) {
	var records []entities.Record
	if _, err := r.store.Load(ctx, r.collection.Document(), &records); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.collection, err)
	}

	if records == nil {
		records = []entities.Record{}
	}

	return records, nil
}

// Append assigns a fresh id to record and adds it at the end
func (r *CollectionRepositoryImpl) Append(ctx context.Context, record entities.Record) (entities.Record, error) {
	records, err := r.List(ctx)
	if err != nil {
		return entities.Record{}, err
	}

	record.ID = r.ids.Next()
	if record.Fields == nil {
		record.Fields = map[string]any{}
	}
	records = append(records, record)

	if err := r.save(ctx, records); err != nil {
		return entities.Record{}, fmt.Errorf("append %s: %w", r.collection, err)
	}

	return record, nil
}

// Delete filters out every record with the given id and rewrites the
// collection. An unknown id leaves the contents unchanged.
func (r *CollectionRepositoryImpl) Delete(ctx context.Context, id string) (bool, error) {
	records, err := r.List(ctx)
	if err != nil {
		return false, err
	}

	kept := records[:0]
	for _, rec := range records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	removed := len(kept) != len(records)

	if err := r.save(ctx, kept); err != nil {
		return false, fmt.Errorf("delete from %s: %w", r.collection, err)
	}

	return removed, nil
}

// save rewrites the whole collection document
func (r *CollectionRepositoryImpl) save(ctx context.Context, records []entities.Record) error {
	if records == nil {
		records = []entities.Record{}
	}
	return r.store.Save(ctx, r.collection.Document(), records)
}
