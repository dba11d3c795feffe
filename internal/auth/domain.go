package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("auth: user not found")
	// ErrEmailTaken indicates the derived email or username is already registered.
	ErrEmailTaken = fmt.Errorf("auth: user already exists: %w", httpx.ErrDuplicate)
)

// User represents a back-office account.
type User struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	DisplayName       string    `json:"displayName"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Role              string    `json:"role"`
	Zone              string    `json:"zone"`
	Branch            string    `json:"branch"`
	RegisteredModules []string  `json:"registeredModules"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DeriveEmail builds the login email of a username within domain.
func DeriveEmail(username, domain string) string {
	return strings.ToLower(strings.TrimSpace(username)) + "@" + strings.ToLower(strings.TrimSpace(domain))
}

// CreateUserInput is the registration payload.
type CreateUserInput struct {
	Name              string   `json:"name" validate:"required"`
	DisplayName       string   `json:"displayName"`
	Username          string   `json:"username" validate:"required,min=3,max=64"`
	Password          string   `json:"password" validate:"required,min=6"`
	Role              string   `json:"role"`
	Zone              string   `json:"zone"`
	Branch            string   `json:"branch"`
	RegisteredModules []string `json:"registeredModules"`
}

// UpdateUserInput lists the profile fields that may change; nil means unchanged.
type UpdateUserInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	DisplayName *string `json:"displayName"`
	Username    *string `json:"username" validate:"omitempty,min=3,max=64"`
	Role        *string `json:"role"`
	Zone        *string `json:"zone"`
	Branch      *string `json:"branch"`
}

// SignInInput accepts either the username or the full email.
type SignInInput struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"required_without=Username"`
	Password string `json:"password" validate:"required"`
}

// ModulesInput replaces the registered module list.
type ModulesInput struct {
	RegisteredModules []string `json:"registeredModules" validate:"required"`
}

// ResetPasswordInput carries the replacement password.
type ResetPasswordInput struct {
	Password string `json:"password" validate:"required,min=6"`
}
