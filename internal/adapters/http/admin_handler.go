package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
	"github.com/bibliodesign/site/internal/infrastructure/render"
	"github.com/bibliodesign/site/internal/infrastructure/session"
	"github.com/bibliodesign/site/internal/ports"
)

// Form fields of the content editor that add one new key
const (
	newContentKey   = "new_key"
	newContentValue = "new_value"
)

// AdminHandler serves the admin panel. Every method expects a verified session.
type AdminHandler struct {
	contentService    ports.ContentService
	collectionService ports.CollectionService
	logger            *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(contentService ports.ContentService, collectionService ports.CollectionService, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		contentService:    contentService,
		collectionService: collectionService,
		logger:            logger,
	}
}

// Dashboard lists the inquiries
func (h *AdminHandler) Dashboard(c echo.Context, sess *session.Session) error {
	inquiries, err := h.collectionService.List(c.Request().Context(), entities.CollectionInquiries)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "admin/dashboard", render.PageData{
		Inquiries: inquiries,
		Username:  sess.Username,
	})
}

// ContentPage renders the content editor
func (h *AdminHandler) ContentPage(c echo.Context, sess *session.Session) error {
	content, err := h.contentService.GetContent(c.Request().Context())
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "admin/content", render.PageData{
		Content:  content,
		Success:  c.QueryParam("success") == "true",
		Username: sess.Username,
	})
}

// UpdateContent replaces the site content with the submitted fields
func (h *AdminHandler) UpdateContent(c echo.Context, sess *session.Session) error {
	values, err := postForm(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}

	content := make(entities.SiteContent, len(values)+1)
	for key, v := range values {
		if key == newContentKey || key == newContentValue || len(v) == 0 {
			continue
		}
		content[key] = v[0]
	}
	if key := strings.TrimSpace(values.Get(newContentKey)); key != "" {
		content[key] = values.Get(newContentValue)
	}

	if err := h.contentService.UpdateContent(c.Request().Context(), content); err != nil {
		return err
	}

	h.logger.LogUserAction(sess.Username, "content_updated", map[string]interface{}{"keys": len(content)})

	return c.Redirect(http.StatusFound, "/admin/content?success=true")
}

// ListRecords renders the admin page of a collection
func (h *AdminHandler) ListRecords(collection entities.Collection) AdminHandlerFunc {
	return func(c echo.Context, sess *session.Session) error {
		records, err := h.collectionService.List(c.Request().Context(), collection)
		if err != nil {
			return err
		}

		data := render.PageData{Username: sess.Username}
		setRecords(&data, collection, records)

		return c.Render(http.StatusOK, "admin/"+string(collection), data)
	}
}

// CreateRecord appends a record built from the form, storing the upload if
// the collection takes one
func (h *AdminHandler) CreateRecord(collection entities.Collection) AdminHandlerFunc {
	return func(c echo.Context, sess *session.Session) error {
		values, err := postForm(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
		}

		req := ports.CreateRecordRequest{Values: values}

		if field := collection.UploadField(); field != "" {
			fh, err := c.FormFile(field)
			switch {
			case err == nil:
				req.Upload = fh
			case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			default:
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid file upload")
			}
		}

		record, err := h.collectionService.Create(c.Request().Context(), collection, req)
		if err != nil {
			return err
		}

		h.logger.LogUserAction(sess.Username, "record_created", map[string]interface{}{
			"collection": collection,
			"id":         record.ID,
		})

		return c.Redirect(http.StatusFound, "/admin/"+string(collection))
	}
}

// DeleteRecord filters the record named by the :id path parameter out of the collection
func (h *AdminHandler) DeleteRecord(collection entities.Collection) AdminHandlerFunc {
	return func(c echo.Context, sess *session.Session) error {
		id := pathParam(c, "id")

		if err := h.collectionService.Delete(c.Request().Context(), collection, id); err != nil {
			return err
		}

		h.logger.LogUserAction(sess.Username, "record_deleted", map[string]interface{}{
			"collection": collection,
			"id":         id,
		})

		return c.Redirect(http.StatusFound, "/admin/"+string(collection))
	}
}
