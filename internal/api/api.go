package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/huriachi/collectiv/internal/repository"
	"github.com/huriachi/collectiv/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	resetToken  string
}

// NewUserHandler creates a new instance of UserHandler. An empty resetToken
// disables the database reset route.
func NewUserHandler(userService *service.UserService, resetToken string) *UserHandler {
	return &UserHandler{userService: userService, resetToken: resetToken}
}

// RegisterRoutes wires every route the admin exposes. The explicit table
// replaces the reflective route registration of earlier iterations.
func (h *UserHandler) RegisterRoutes(e *echo.Echo) {
	routes := []struct {
		method  string
		path    string
		handler echo.HandlerFunc
	}{
		{http.MethodGet, "/", h.Home},
		{http.MethodGet, "/users", h.Index},
		{http.MethodGet, "/users/create", h.CreateForm},
		{http.MethodPost, "/users", h.Store},
		{http.MethodGet, "/users/health", h.Health},
		{http.MethodGet, "/users/:id/edit", h.EditForm},
		{http.MethodPost, "/users/:id/edit", h.Update},
		{http.MethodPost, "/users/:id/delete", h.Delete},
		{http.MethodPost, "/dangerous/database/reset", h.Reset},
	}

	for _, r := range routes {
		e.Add(r.method, r.path, r.handler)
	}
}

// Home shows the basic index page --> /
func (h *UserHandler) Home(c echo.Context) error {
	return c.Render(200, "home.html", nil)
}

// Index displays all users that are on the system --> /users
func (h *UserHandler) Index(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		return c.String(500, "Something broke on our side... 500")
	}
	return c.Render(200, "userlist.html", map[string]interface{}{"Users": users})
}

// CreateForm displays the form for user creation --> /users/create
func (h *UserHandler) CreateForm(c echo.Context) error {
	return c.Render(200, "user.html", map[string]interface{}{"User": nil})
}

// Store handles user creation --> POST /users
func (h *UserHandler) Store(c echo.Context) error {
	form := service.UserForm{}
	if err := c.Bind(&form); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	envelope, err := h.userService.CreateUser(c.Request().Context(), &form, c.Request().Header.Get("Idempotent-Key"))
	if err != nil {
		if errors.Is(err, service.ErrDuplicateRequest) {
			return c.JSON(409, service.Envelope{Success: false, Message: "This request has already been processed."})
		}
		return c.JSON(500, service.Envelope{Success: false, Message: "Something broke on our side... 500"})
	}

	if !envelope.Success {
		return c.JSON(400, envelope)
	}
	return c.JSON(200, envelope)
}

// EditForm shows the form for user editing --> /users/:id/edit
func (h *UserHandler) EditForm(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.Render(404, "404.html", nil)
	}

	user, err := h.userService.GetUser(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Render(404, "404.html", nil)
		}
		return c.String(500, "Something broke on our side... 500")
	}

	return c.Render(200, "user.html", map[string]interface{}{"User": user})
}

// Update handles user updating --> POST /users/:id/edit
func (h *UserHandler) Update(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid ID"})
	}

	form := service.UserForm{}
	if err := c.Bind(&form); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	envelope, err := h.userService.UpdateUser(c.Request().Context(), id, &form)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(404, service.Envelope{Success: false, Message: "The user could not be found."})
		}
		return c.JSON(500, service.Envelope{Success: false, Message: "Something broke on our side... 500"})
	}

	if !envelope.Success {
		return c.JSON(400, envelope)
	}
	return c.JSON(200, envelope)
}

// Delete allows for the deletion of a user --> POST /users/:id/delete
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid ID"})
	}

	if err := h.userService.DeleteUser(c.Request().Context(), id); err != nil {
		return c.JSON(500, service.Envelope{Success: false, Message: "Something broke on our side... 500"})
	}

	return c.JSON(200, service.Envelope{Success: true})
}

// Reset wipes the database back to the seed dataset --> POST /dangerous/database/reset
// The route refuses everything unless the caller presents the reset token.
func (h *UserHandler) Reset(c echo.Context) error {
	token := c.Request().Header.Get("X-Reset-Token")
	if h.resetToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.resetToken)) != 1 {
		return c.JSON(403, map[string]string{"error": "Forbidden"})
	}

	if err := h.userService.ResetDatabase(c.Request().Context()); err != nil {
		return c.JSON(500, service.Envelope{Success: false, Message: "Something broke on our side... 500"})
	}

	return c.JSON(200, service.Envelope{Success: true})
}

// Health is a basic liveness check --> /users/health
func (h *UserHandler) Health(c echo.Context) error {
	return c.JSON(200, map[string]interface{}{
		"status":  "ok",
		"service": "user-admin",
		"time":    time.Now().Format(time.RFC3339),
	})
}
