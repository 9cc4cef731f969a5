package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sabowaryan/sabowaryantech/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// Account is a user together with the bcrypt hash of their password.
type Account struct {
	User
	PasswordHash string `json:"passwordHash" validate:"required"`
}

// Directory authenticates users by email and password.
type Directory struct {
	byEmail  map[string]Account
	validate *validator.Validate
}

// NewDirectory indexes accounts by lower-cased email. Later duplicates win.
func NewDirectory(accounts []Account) *Directory {
	d := &Directory{byEmail: make(map[string]Account, len(accounts)), validate: validation.New()}
	for _, a := range accounts {
		d.byEmail[strings.ToLower(a.Email)] = a
	}
	return d
}

// LoadAccounts reads a JSON array of accounts from path and validates every entry.
func LoadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file %s: %w", path, err)
	}
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts file %s: %w", path, err)
	}
	if err := validation.Slice(validation.New(), accounts); err != nil {
		return nil, fmt.Errorf("invalid accounts file %s: %w", path, err)
	}
	return accounts, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate checks form against the directory.
// Returns validator.ValidationErrors for a malformed form and ErrInvalidCredentials
// when the email is unknown or the password does not match.
func (d *Directory) Authenticate(_ context.Context, form LoginForm) (User, error) {
	if err := d.validate.Struct(form); err != nil {
		return User{}, err
	}
	account, ok := d.byEmail[strings.ToLower(form.Email)]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(form.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return account.User, nil
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	return len(d.byEmail)
}
