package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sabowaryan/sabowaryantech/internal/cart"
	"github.com/sabowaryan/sabowaryantech/internal/catalog"
	"github.com/sabowaryan/sabowaryantech/internal/order"
	"github.com/sabowaryan/sabowaryantech/internal/platform/web"
	"github.com/sabowaryan/sabowaryantech/internal/session"
	"github.com/shopspring/decimal"
)

type lineView struct {
	cart.Line
	Total decimal.Decimal `json:"total"`
}

type cartView struct {
	Items      []lineView      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ItemCount  int             `json:"itemCount"`
}

func viewCart(s *cart.Store) cartView {
	snap := s.Snapshot()
	items := make([]lineView, len(snap.Lines))
	for i, l := range snap.Lines {
		items[i] = lineView{Line: l, Total: l.Total()}
	}
	return cartView{Items: items, TotalPrice: snap.TotalPrice, ItemCount: snap.ItemCount}
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Quantity  int    `json:"quantity"  validate:"gte=0,lte=999"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=999"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, viewCart(s.Cart))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	s.Cart.Clear(r.Context())
	mLogger.InfoContext(r.Context(), "Cart cleared", "client_id", s.ID)
	web.RespondJSON(w, mLogger, http.StatusOK, viewCart(s.Cart))
}

// AddCartItem adds a catalog product to the cart. The addition is visible at once
// and confirmed against stock in the background.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req addItemRequest
	if !web.DecodeJSON(w, r, mLogger, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}
	product, err := h.Catalog.FindByID(req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", req.ProductID)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", req.ProductID))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", req.ProductID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to add item to cart")
		return
	}
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	s.Additions.AddItem(r.Context(), product, req.Quantity)
	lineQuantity, _ := s.Cart.Quantity(product.ID)
	mLogger.DebugContext(r.Context(), "Item added to cart", "ID", product.ID, "quantity", req.Quantity, "line_quantity", lineQuantity)
	web.RespondJSON(w, mLogger, http.StatusOK, viewCart(s.Cart))
}

// UpdateCartItem sets the quantity of a line. Zero or less removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req updateQuantityRequest
	if !web.DecodeJSON(w, r, mLogger, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	s.Cart.UpdateQuantity(r.Context(), r.PathValue("id"), req.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, viewCart(s.Cart))
}

// RemoveCartItem deletes a line. Removing an absent line still succeeds.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	s.Cart.RemoveItem(r.Context(), r.PathValue("id"))
	web.RespondJSON(w, mLogger, http.StatusOK, viewCart(s.Cart))
}

// DraftOrder previews the pending order the signed-in user would place.
// The request carries the user's access token.
func (h *Handler) DraftOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	user, _, ok := s.Session.Current()
	if !ok {
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Login required")
		return
	}
	if claims, ok := tokenClaims(r.Context()); !ok || claims.Subject != user.ID {
		mLogger.WarnContext(r.Context(), "Access token does not match the signed-in user", "user_id", user.ID)
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Token does not belong to the signed-in user")
		return
	}
	if !user.HasPermission(session.PermissionPlaceOrder) {
		web.RespondError(w, mLogger, http.StatusForbidden, "Not allowed to place orders")
		return
	}
	draft, err := h.Orders.Draft(user, s.Cart.Lines())
	if err != nil {
		if errors.Is(err, order.ErrEmptyCart) {
			web.RespondError(w, mLogger, http.StatusConflict, "Cart is empty")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error drafting order", "error", err)
		web.RespondError(w, mLogger, http.StatusUnprocessableEntity, "Cart cannot be ordered")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, draft)
}
