package presenter

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/accounts/pkg/auth"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// UserView is the public shape of a user. The password hash has no field here.
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountView is returned by register, login and profile update.
type AccountView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ProfileView is returned by a profile read.
type ProfileView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserEnvelope struct {
	User UserView `json:"user"`
}

type UsersEnvelope struct {
	Users []UserView `json:"users"`
}

func NewUserView(u auth.User) UserView {
	return UserView{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewAccountView(u auth.User) AccountView {
	return AccountView{ID: u.ID.String(), Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin}
}

func NewProfileView(u auth.User) ProfileView {
	return ProfileView{ID: u.ID.String(), Username: u.Username, Email: u.Email}
}

func NewUsersEnvelope(users []auth.User) UsersEnvelope {
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, NewUserView(u))
	}
	return UsersEnvelope{Users: views}
}

func JSON(c *fiber.Ctx, status int, v any) error {
	return c.Status(status).JSON(v)
}

func Error(c *fiber.Ctx, status int, message string) error {
	return JSON(c, status, ErrorResponse{Message: message})
}
