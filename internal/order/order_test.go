package order

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sabowaryan/sabowaryantech/internal/cart"
	"github.com/sabowaryan/sabowaryantech/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Drafter_Draft(t *testing.T) {
	user := session.User{ID: uuid.NewString(), Email: "jane@example.com", Name: "Jane", Role: session.RoleUser}
	fixed := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		user          session.User
		lines         []cart.Line
		expectedTotal string
		expectedErr   error
		expectInvalid bool
	}{
		{
			name: "Success",
			user: user,
			lines: []cart.Line{
				{ProductID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 2},
				{ProductID: "p2", Name: "Gadget", Price: decimal.RequireFromString("2.5"), Quantity: 1},
			},
			expectedTotal: "22.5",
		},
		{name: "Error - empty cart", user: user, expectedErr: ErrEmptyCart},
		{
			name:          "Error - line with zero quantity",
			user:          user,
			lines:         []cart.Line{{ProductID: "p1", Name: "Widget", Price: decimal.NewFromInt(10)}},
			expectInvalid: true,
		},
		{
			name:          "Error - user without id",
			user:          session.User{Name: "Ghost"},
			lines:         []cart.Line{{ProductID: "p1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 1}},
			expectInvalid: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			d := NewDrafter()
			d.now = func() time.Time { return fixed }
			// when
			o, err := d.Draft(tc.user, tc.lines)
			// then
			switch {
			case tc.expectedErr != nil:
				assert.ErrorIs(t, err, tc.expectedErr)
			case tc.expectInvalid:
				var verrs validator.ValidationErrors
				assert.ErrorAs(t, err, &verrs)
			default:
				require.NoError(t, err)
				assert.Equal(t, StatusPending, o.Status)
				assert.Equal(t, tc.user.ID, o.UserID)
				assert.Equal(t, tc.expectedTotal, o.Total.String())
				assert.Equal(t, fixed, o.CreatedAt)
				assert.NoError(t, uuid.Validate(o.ID))
			}
		})
	}
}
