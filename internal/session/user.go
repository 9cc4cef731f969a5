// Package session holds the signed-in shopper: the user/session state machine,
// token minting and password checks behind login.
package session

import (
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// PermissionPlaceOrder allows drafting and placing orders from the cart.
const PermissionPlaceOrder = "orders:create"

// shopperPermissions are held by every known role.
var shopperPermissions = []string{PermissionPlaceOrder}

// managerPermissions lists what a manager may do besides everything under catalog:.
var managerPermissions = []string{"orders:read"}

// User is a signed-in identity.
type User struct {
	ID        string    `json:"id"        validate:"required,uuid"`
	Email     string    `json:"email"     validate:"required,email"`
	Name      string    `json:"name"      validate:"required,min=2"`
	Role      Role      `json:"role"      validate:"required,oneof=user admin manager"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPermission reports whether the user's role grants permission.
// Admins hold every permission. Users may place orders, and managers may also
// use catalog:* and orders:read.
func (u User) HasPermission(permission string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		if strings.HasPrefix(permission, "catalog:") || slices.Contains(managerPermissions, permission) {
			return true
		}
		return slices.Contains(shopperPermissions, permission)
	case RoleUser:
		return slices.Contains(shopperPermissions, permission)
	}
	return false
}

// Session carries the tokens issued at login.
type Session struct {
	UserID       string    `json:"userId"       validate:"required,uuid"`
	Token        string    `json:"token"        validate:"required"`
	RefreshToken string    `json:"refreshToken" validate:"required"`
	ExpiresAt    time.Time `json:"expiresAt"    validate:"required"`
}

// LoginForm is the login request body.
type LoginForm struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}
