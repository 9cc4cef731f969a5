// Package order describes orders built from a cart. Placing and paying for
// orders is handled outside the storefront state service.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sabowaryan/sabowaryantech/internal/cart"
	"github.com/sabowaryan/sabowaryantech/internal/session"
	"github.com/sabowaryan/sabowaryantech/internal/validation"
	"github.com/shopspring/decimal"
)

var ErrEmptyCart = errors.New("cart is empty")

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type Order struct {
	ID            string          `json:"id"            validate:"required,uuid"`
	UserID        string          `json:"userId"        validate:"required,uuid"`
	Items         []cart.Line     `json:"items"         validate:"required,min=1,dive"`
	Status        Status          `json:"status"        validate:"required,oneof=pending paid shipped delivered cancelled"`
	Total         decimal.Decimal `json:"total"         validate:"gte=0"`
	DownloadLinks []string        `json:"downloadLinks" validate:"dive,url"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Drafter builds pending orders and validates them before they leave the service.
type Drafter struct {
	validate *validator.Validate
	now      func() time.Time
}

func NewDrafter() *Drafter {
	return &Drafter{validate: validation.New(), now: time.Now}
}

// Draft builds a pending order for user from the cart lines.
// Returns ErrEmptyCart if lines is empty.
func (d *Drafter) Draft(user session.User, lines []cart.Line) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	now := d.now().UTC()
	o := Order{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Items:         lines,
		Status:        StatusPending,
		Total:         total,
		DownloadLinks: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := d.validate.Struct(o); err != nil {
		return Order{}, fmt.Errorf("invalid order draft: %w", err)
	}
	return o, nil
}
