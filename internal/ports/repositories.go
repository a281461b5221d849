package ports

import (
	"context"
	"mime/multipart"

	"github.com/bibliodesign/site/internal/domain/entities"
)

// DocumentStore reads and writes whole named JSON documents.
type DocumentStore interface {
	Load(ctx context.Context, name string, v any) (bool, error)
	Save(ctx context.Context, name string, v any) error
}

// SiteContentRepository defines access to the site content document
type SiteContentRepository interface {
	Get(ctx context.Context) (entities.SiteContent, error)
	Replace(ctx context.Context, content entities.SiteContent) error
}

// CollectionRepository defines access to one array-shaped document
type CollectionRepository interface {
	List(ctx context.Context) ([]entities.Record, error)
	Append(ctx context.Context, record entities.Record) (entities.Record, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// UserRepository defines access to admin accounts
type UserRepository interface {
	List(ctx context.Context) ([]entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	Save(ctx context.Context, user entities.User) error
}

// ImageStorage persists uploaded images and returns their public path
type ImageStorage interface {
	Save(fh *multipart.FileHeader) (string, error)
}
