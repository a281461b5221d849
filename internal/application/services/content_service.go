package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
	"github.com/bibliodesign/site/internal/ports"
)

// CollectionResolver hands out the repository backing a collection kind
type CollectionResolver interface {
	Collection(c entities.Collection) (ports.CollectionRepository, error)
}

// ContentService reads and overwrites the site content document
type ContentService struct {
	contentRepo ports.SiteContentRepository
	logger      *logger.Logger
}

// NewContentService creates a new content service
func NewContentService(contentRepo ports.SiteContentRepository, logger *logger.Logger) *ContentService {
	return &ContentService{
		contentRepo: contentRepo,
		logger:      logger.WithComponent("content"),
	}
}

// GetContent returns the current site content, empty when none was saved yet
func (s *ContentService) GetContent(ctx context.Context) (entities.SiteContent, error) {
	content, err := s.contentRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}
	return content, nil
}

// UpdateContent replaces the whole document. Keys absent from content are gone afterwards.
func (s *ContentService) UpdateContent(ctx context.Context, content entities.SiteContent) error {
	if content == nil {
		content = entities.SiteContent{}
	}
	if err := s.contentRepo.Replace(ctx, content); err != nil {
		return fmt.Errorf("failed to save content: %w", err)
	}

	s.logger.Infow("Site content updated", "keys", len(content))
	return nil
}

// CollectionService runs the admin mutation cycle: load, append or filter, save.
type CollectionService struct {
	repos  CollectionResolver
	images ports.ImageStorage
	logger *logger.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(repos CollectionResolver, images ports.ImageStorage, logger *logger.Logger) *CollectionService {
	return &CollectionService{
		repos:  repos,
		images: images,
		logger: logger.WithComponent("collections"),
	}
}

// List returns the records of a collection in stored order
func (s *CollectionService) List(ctx context.Context, collection entities.Collection) ([]entities.Record, error) {
	repo, err := s.repos.Collection(collection)
	if err != nil {
		return nil, err
	}

	records, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return records, nil
}

// Create appends one record built from the submitted fields. For collections
// with an upload field the stored image path replaces any submitted value,
// so a missing file leaves the field empty.
func (s *CollectionService) Create(ctx context.Context, collection entities.Collection, req ports.CreateRecordRequest) (entities.Record, error) {
	repo, err := s.repos.Collection(collection)
	if err != nil {
		return entities.Record{}, err
	}

	record := entities.NewRecord(req.Values)

	if field := collection.UploadField(); field != "" {
		var stored string
		if req.Upload != nil {
			stored, err = s.images.Save(req.Upload)
			if err != nil {
				return entities.Record{}, fmt.Errorf("failed to store %s: %w", field, err)
			}
		}
		record.Set(field, stored)
	}

	created, err := repo.Append(ctx, record)
	if err != nil {
		return entities.Record{}, fmt.Errorf("failed to add to %s: %w", collection, err)
	}

	s.logger.Infow("Record created", "collection", collection, "id", created.ID)
	return created, nil
}

// Delete filters the record out. An unknown id is not an error.
func (s *CollectionService) Delete(ctx context.Context, collection entities.Collection, id string) error {
	repo, err := s.repos.Collection(collection)
	if err != nil {
		return err
	}

	removed, err := repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}

	if removed {
		s.logger.Infow("Record deleted", "collection", collection, "id", id)
	} else {
		s.logger.Debugw("Delete of unknown record ignored", "collection", collection, "id", id)
	}
	return nil
}

// InquiryService stores contact form submissions
type InquiryService struct {
	inquiries ports.CollectionRepository
	validate  *validator.Validate
	now       func() time.Time
	logger    *logger.Logger
}

// NewInquiryService creates a new inquiry service
func NewInquiryService(inquiries ports.CollectionRepository, logger *logger.Logger) *InquiryService {
	return &InquiryService{
		inquiries: inquiries,
		validate:  validator.New(),
		now:       time.Now,
		logger:    logger.WithComponent("inquiries"),
	}
}

// Submit validates the named fields and appends every submitted field
// together with the capture date.
func (s *InquiryService) Submit(ctx context.Context, req ports.ContactRequest) (entities.Record, error) {
	if err := s.validate.Struct(req); err != nil {
		return entities.Record{}, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
	}

	record := entities.NewRecord(req.Values)
	record.Set("date", entities.FormatDate(s.now()))

	created, err := s.inquiries.Append(ctx, record)
	if err != nil {
		return entities.Record{}, fmt.Errorf("failed to store inquiry: %w", err)
	}

	s.logger.Infow("Inquiry received", "id", created.ID, "email", req.Email)
	return created, nil
}
