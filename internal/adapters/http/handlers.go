package http

import (
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/render"
	"github.com/bibliodesign/site/internal/infrastructure/session"
)

// AdminHandlerFunc is an admin handler. It only runs once the session has
// been verified and receives it explicitly.
type AdminHandlerFunc func(c echo.Context, sess *session.Session) error

// postForm returns the submitted body fields, urlencoded or multipart,
// without query parameters
func postForm(c echo.Context) (url.Values, error) {
	if _, err := c.FormParams(); err != nil {
		return nil, err
	}
	return c.Request().PostForm, nil
}

// pathParam returns the named path parameter decoded. Echo matches on the
// escaped path when the URL carries escapes such as %2F, leaving them in
// the parameter.
func pathParam(c echo.Context, name string) string {
	value := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return value
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

// setRecords puts records into the PageData slot the collection's page reads
func setRecords(data *render.PageData, collection entities.Collection, records []entities.Record) {
	switch collection {
	case entities.CollectionTestimonials:
		data.Testimonials = records
	case entities.CollectionPortfolio:
		data.Projects = records
	case entities.CollectionTeam:
		data.Team = records
	case entities.CollectionServices:
		data.Services = records
	case entities.CollectionInquiries:
		data.Inquiries = records
	}
}
