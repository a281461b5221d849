package ports

import (
	"context"
	"mime/multipart"
	"net/url"

	"github.com/bibliodesign/site/internal/domain/entities"
)

// AuthService verifies admin credentials
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*entities.User, error)
}

// UserService manages admin accounts
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*entities.User, error)
	ListUsers(ctx context.Context) ([]entities.User, error)
}

// ContentService reads and overwrites the site content
type ContentService interface {
	GetContent(ctx context.Context) (entities.SiteContent, error)
	UpdateContent(ctx context.Context, content entities.SiteContent) error
}

// CollectionService applies the admin mutation protocol to a collection
type CollectionService interface {
	List(ctx context.Context, collection entities.Collection) ([]entities.Record, error)
	Create(ctx context.Context, collection entities.Collection, req CreateRecordRequest) (entities.Record, error)
	Delete(ctx context.Context, collection entities.Collection, id string) error
}

// InquiryService accepts contact form submissions
type InquiryService interface {
	Submit(ctx context.Context, req ContactRequest) (entities.Record, error)
}

// Request types

type LoginRequest struct {
	Username string `form:"username" validate:"required,max=100"`
	Password string `form:"password" validate:"required,max=200"`
}

// CreateUserRequest adds an admin account. With Replace set an existing
// account of the same name gets the new password instead of an error.
type CreateUserRequest struct {
	Username string `validate:"required,min=3,max=50"`
	Password string `validate:"required,min=8,max=72"`
	Replace  bool
}

// ContactRequest carries every submitted field; the named ones are validated.
type ContactRequest struct {
	Name    string `validate:"omitempty,max=200"`
	Email   string `validate:"omitempty,email,max=254"`
	Message string `validate:"omitempty,max=5000"`
	Values  url.Values
}

// CreateRecordRequest carries the submitted fields and an optional upload.
type CreateRecordRequest struct {
	Values url.Values
	Upload *multipart.FileHeader
}
