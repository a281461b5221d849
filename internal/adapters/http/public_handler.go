package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
	"github.com/bibliodesign/site/internal/infrastructure/render"
	"github.com/bibliodesign/site/internal/ports"
)

const contactErrorMessage = "Please check your email address and keep the message under 5000 characters."

// PublicHandler serves the marketing pages and the contact form
type PublicHandler struct {
	contentService    ports.ContentService
	collectionService ports.CollectionService
	inquiryService    ports.InquiryService
	logger            *logger.Logger
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(contentService ports.ContentService, collectionService ports.CollectionService, inquiryService ports.InquiryService, logger *logger.Logger) *PublicHandler {
	return &PublicHandler{
		contentService:    contentService,
		collectionService: collectionService,
		inquiryService:    inquiryService,
		logger:            logger,
	}
}

// page loads the content plus the listed collections and renders name
func (h *PublicHandler) page(c echo.Context, name string, collections ...entities.Collection) error {
	data, err := h.pageData(c, collections...)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, name, data)
}

func (h *PublicHandler) pageData(c echo.Context, collections ...entities.Collection) (render.PageData, error) {
	ctx := c.Request().Context()

	content, err := h.contentService.GetContent(ctx)
	if err != nil {
		return render.PageData{}, err
	}

	data := render.PageData{Content: content}
	for _, collection := range collections {
		records, err := h.collectionService.List(ctx, collection)
		if err != nil {
			return render.PageData{}, err
		}
		setRecords(&data, collection, records)
	}

	return data, nil
}

// Index renders the home page
func (h *PublicHandler) Index(c echo.Context) error {
	return h.page(c, "index", entities.CollectionTestimonials)
}

// About renders the about page with the team
func (h *PublicHandler) About(c echo.Context) error {
	return h.page(c, "about", entities.CollectionTeam)
}

// Services renders the services page
func (h *PublicHandler) Services(c echo.Context) error {
	return h.page(c, "services", entities.CollectionServices)
}

// Process renders the process page
func (h *PublicHandler) Process(c echo.Context) error {
	return h.page(c, "process")
}

// Portfolio renders the portfolio page
func (h *PublicHandler) Portfolio(c echo.Context) error {
	return h.page(c, "portfolio", entities.CollectionPortfolio)
}

// Contact renders the contact page
func (h *PublicHandler) Contact(c echo.Context) error {
	data, err := h.pageData(c)
	if err != nil {
		return err
	}
	data.Success = c.QueryParam("success") == "true"
	return c.Render(http.StatusOK, "contact", data)
}

// SubmitContact stores the inquiry and redirects back with the success flag
func (h *PublicHandler) SubmitContact(c echo.Context) error {
	values, err := postForm(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}

	req := ports.ContactRequest{
		Name:    values.Get("name"),
		Email:   values.Get("email"),
		Message: values.Get("message"),
		Values:  values,
	}

	if _, err := h.inquiryService.Submit(c.Request().Context(), req); err != nil {
		if !errors.Is(err, entities.ErrInvalidInput) {
			return err
		}

		h.logger.Infow("Contact form rejected", "error", err, "ip", c.RealIP())
		data, loadErr := h.pageData(c)
		if loadErr != nil {
			return loadErr
		}
		data.Error = contactErrorMessage
		return c.Render(http.StatusBadRequest, "contact", data)
	}

	return c.Redirect(http.StatusFound, "/contact?success=true")
}
