package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/artem13815/accounts/api/http/presenter"
	"github.com/artem13815/accounts/pkg/auth"
	"github.com/artem13815/accounts/pkg/security/jwt"
	"github.com/artem13815/accounts/pkg/users"
)

type UsersHandler struct {
	auth   auth.AuthUseCase
	users  users.UseCase
	cookie jwt.CookieConfig
	log    logrus.FieldLogger
}

func NewUsersHandler(authUC auth.AuthUseCase, usersUC users.UseCase, cookie jwt.CookieConfig, log logrus.FieldLogger) *UsersHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UsersHandler{auth: authUC, users: usersUC, cookie: cookie, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  *bool  `json:"isAdmin"`
}

// Register creates an account and starts a session.
// @Summary Register user
// @Tags    users
// @Accept  json
// @Produce json
// @Param   input body registerRequest true "registration payload"
// @Success 201 {object} presenter.AccountView
// @Failure 400 {object} presenter.ErrorResponse
// @Router  /users [post]
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}

	result, err := h.auth.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return h.fail(c, err, http.StatusBadRequest)
	}

	jwt.SetSessionCookie(c, h.cookie, result.Token)
	return presenter.JSON(c, http.StatusCreated, presenter.NewAccountView(result.User))
}

// Login verifies credentials and starts a session.
// @Summary Login
// @Tags    users
// @Accept  json
// @Produce json
// @Param   input body loginRequest true "login payload"
// @Success 201 {object} presenter.AccountView
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Router  /users/auth [post]
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err, http.StatusBadRequest)
	}

	jwt.SetSessionCookie(c, h.cookie, result.Token)
	return presenter.JSON(c, http.StatusCreated, presenter.NewAccountView(result.User))
}

// Logout clears the session cookie.
// @Summary Logout
// @Tags    users
// @Produce json
// @Success 201 {object} presenter.MessageResponse
// @Router  /users/logout [post]
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	jwt.ClearSessionCookie(c, h.cookie)
	return presenter.JSON(c, http.StatusCreated, presenter.MessageResponse{Message: "Logged out successfully"})
}

// Profile returns the caller's own record.
// @Summary Current user profile
// @Tags    users
// @Produce json
// @Security BearerAuth
// @Success 201 {object} presenter.ProfileView
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /users/profile [get]
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	identity, ok := jwt.IdentityFrom(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "not authorized")
	}
	user, err := h.users.Profile(c.UserContext(), identity.UserID)
	if err != nil {
		return h.fail(c, err, http.StatusNotFound)
	}
	return presenter.JSON(c, http.StatusCreated, presenter.NewProfileView(user))
}

// UpdateProfile applies a partial update to the caller's own record.
// @Summary Update current user profile
// @Tags    users
// @Accept  json
// @Produce json
// @Security BearerAuth
// @Param   input body updateProfileRequest true "fields to change"
// @Success 200 {object} presenter.AccountView
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 404 {object} presenter.ErrorResponse
// @Router  /users/profile [put]
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	identity, ok := jwt.IdentityFrom(c)
	if !ok {
		return presenter.Error(c, http.StatusUnauthorized, "not authorized")
	}
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	user, err := h.users.UpdateProfile(c.UserContext(), identity.UserID, users.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.fail(c, err, http.StatusNotFound)
	}
	return presenter.JSON(c, http.StatusOK, presenter.NewAccountView(user))
}

// List returns all users. Admin only.
// @Summary List users
// @Tags    admin
// @Produce json
// @Security BearerAuth
// @Param   limit  query int false "page size, all users when omitted"
// @Param   offset query int false "offset"
// @Success 201 {object} presenter.UsersEnvelope
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 403 {object} presenter.ErrorResponse
// @Router  /users [get]
func (h *UsersHandler) List(c *fiber.Ctx) error {
	limit, offset := parseLimitOffset(c, 0)
	list, err := h.users.List(c.UserContext(), limit, offset)
	if err != nil {
		return h.fail(c, err, http.StatusBadRequest)
	}
	return presenter.JSON(c, http.StatusCreated, presenter.NewUsersEnvelope(list))
}

// Get returns one user by id. Admin only.
// @Summary Get user
// @Tags    admin
// @Produce json
// @Security BearerAuth
// @Param   id path string true "user id"
// @Success 200 {object} presenter.UserEnvelope
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 403 {object} presenter.ErrorResponse
// @Router  /users/{id} [get]
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, ok := userIDParam(c)
	if !ok {
		return presenter.Error(c, http.StatusBadRequest, "User not found")
	}
	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, http.StatusBadRequest)
	}
	return presenter.JSON(c, http.StatusOK, presenter.UserEnvelope{User: presenter.NewUserView(user)})
}

// Update changes a user's name, email or admin flag. Admin only.
// @Summary Update user
// @Tags    admin
// @Accept  json
// @Produce json
// @Security BearerAuth
// @Param   id    path string            true "user id"
// @Param   input body updateUserRequest true "fields to change"
// @Success 200 {object} presenter.UserEnvelope
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 403 {object} presenter.ErrorResponse
// @Router  /users/{id} [put]
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, ok := userIDParam(c)
	if !ok {
		return presenter.Error(c, http.StatusBadRequest, "User not found")
	}
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return presenter.Error(c, http.StatusBadRequest, "invalid JSON payload")
	}
	user, err := h.users.Update(c.UserContext(), id, users.AdminUpdate{
		Username: req.Username,
		Email:    req.Email,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		return h.fail(c, err, http.StatusBadRequest)
	}
	return presenter.JSON(c, http.StatusOK, presenter.UserEnvelope{User: presenter.NewUserView(user)})
}

// Delete removes a non-admin user. Admin only.
// @Summary Delete user
// @Tags    admin
// @Produce json
// @Security BearerAuth
// @Param   id path string true "user id"
// @Success 200 {object} presenter.MessageResponse
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 403 {object} presenter.ErrorResponse
// @Router  /users/{id} [delete]
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, ok := userIDParam(c)
	if !ok {
		return presenter.Error(c, http.StatusBadRequest, "User not found")
	}
	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err, http.StatusBadRequest)
	}
	return presenter.JSON(c, http.StatusOK, presenter.MessageResponse{Message: "User removed"})
}

func userIDParam(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

// fail renders a use case error. notFoundStatus differs between the profile
// routes (404) and the admin routes (400).
func (h *UsersHandler) fail(c *fiber.Ctx, err error, notFoundStatus int) error {
	var verr auth.ValidationError
	switch {
	case errors.As(err, &verr):
		return presenter.Error(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return presenter.Error(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return presenter.Error(c, http.StatusUnauthorized, "Invalid credentials. Please check your email and password")
	case errors.Is(err, auth.ErrNotFound):
		return presenter.Error(c, notFoundStatus, "User not found")
	case errors.Is(err, auth.ErrAdminProtected):
		return presenter.Error(c, http.StatusUnauthorized, "Can't delete an admin")
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
		return presenter.Error(c, http.StatusInternalServerError, "internal server error")
	}
}
