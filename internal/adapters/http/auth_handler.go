package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
	"github.com/bibliodesign/site/internal/infrastructure/render"
	"github.com/bibliodesign/site/internal/infrastructure/session"
	"github.com/bibliodesign/site/internal/ports"
)

const invalidCredentials = "Invalid credentials"

// AuthHandler handles admin login and logout
type AuthHandler struct {
	authService ports.AuthService
	sessions    *session.Manager
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, sessions *session.Manager, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
	}
}

// LoginPage renders the login form
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "admin/login", render.PageData{})
}

// Login checks the credentials and grants an admin session on success.
// Every failure re-renders the form with the same message.
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return h.rejectLogin(c, req.Username, "malformed_request")
	}

	if err := c.Validate(&req); err != nil {
		return h.rejectLogin(c, req.Username, "validation_failed")
	}

	user, err := h.authService.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidCredentials) {
			return h.rejectLogin(c, req.Username, "invalid_credentials")
		}
		return err
	}

	if _, err := h.sessions.Grant(c.Response(), c.Request(), user.Username); err != nil {
		return err
	}

	h.logger.LogUserAction(user.Username, "login", map[string]interface{}{"ip": c.RealIP()})

	return c.Redirect(http.StatusFound, "/admin")
}

func (h *AuthHandler) rejectLogin(c echo.Context, username, reason string) error {
	h.logger.LogSecurityEvent("login_failed", username, c.RealIP(), map[string]interface{}{"reason": reason})
	return c.Render(http.StatusOK, "admin/login", render.PageData{Error: invalidCredentials})
}

// Logout destroys the session and returns to the home page
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.Destroy(c.Response(), c.Request()); err != nil {
		h.logger.Warnw("Logout failed to drop session", "error", err)
	}
	return c.Redirect(http.StatusFound, "/")
}
