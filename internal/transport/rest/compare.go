package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sabowaryan/sabowaryantech/internal/catalog"
	"github.com/sabowaryan/sabowaryantech/internal/platform/web"
)

type compareView struct {
	IDs      []string          `json:"ids"`
	Products []catalog.Product `json:"products"`
}

type toggleView struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
	Count    int    `json:"count"`
}

// GetCompare returns the selection and the products still in the catalog.
func (h *Handler) GetCompare(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	ids := s.Compare.IDs()
	products := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, err := h.Catalog.FindByID(id); err == nil {
			products = append(products, p)
		}
	}
	web.RespondJSON(w, mLogger, http.StatusOK, compareView{IDs: ids, Products: products})
}

func (h *Handler) ClearCompare(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	s.Compare.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// ToggleCompare adds or removes a catalog product from the selection.
func (h *Handler) ToggleCompare(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id := r.PathValue("id")
	if _, err := h.Catalog.FindByID(id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to toggle comparison")
		return
	}
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	selected := s.Compare.Toggle(id)
	web.RespondJSON(w, mLogger, http.StatusOK, toggleView{ID: id, Selected: selected, Count: s.Compare.Len()})
}
