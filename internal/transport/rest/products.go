package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sabowaryan/sabowaryantech/internal/catalog"
	"github.com/sabowaryan/sabowaryantech/internal/platform/web"
)

// ListProducts filters, sorts and paginates the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	query := r.URL.Query()

	sortKey, err := catalog.ParseSortKey(query.Get("sort"))
	if err != nil {
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		return
	}
	tagMode, err := catalog.ParseTagMode(query.Get("tagMode"))
	if err != nil {
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		return
	}
	minPrice, ok := web.ParseOptionalDecimal(r, w, mLogger, "minPrice")
	if !ok {
		return
	}
	maxPrice, ok := web.ParseOptionalDecimal(r, w, mLogger, "maxPrice")
	if !ok {
		return
	}
	featured, ok := web.ParseOptionalBool(r, w, mLogger, "featured")
	if !ok {
		return
	}
	page, ok := web.ParseOptionalGte(r, w, mLogger, "page", 1, 1)
	if !ok {
		return
	}
	pageSize, ok := web.ParseOptionalGte(r, w, mLogger, "pageSize", catalog.DefaultPageSize, 1)
	if !ok {
		return
	}

	filters := catalog.Filters{
		Query:      query.Get("q"),
		Categories: query["category"],
		Tags:       query["tag"],
		TagMode:    tagMode,
		Price:      catalog.PriceRange{Min: minPrice, Max: maxPrice},
		Featured:   featured,
		Sort:       sortKey,
		Page:       page,
		PageSize:   pageSize,
	}
	mLogger.DebugContext(r.Context(), "Received request to list products", "filters", filters)
	result := catalog.Apply(h.Catalog.Products(), filters)
	web.RespondJSON(w, mLogger, http.StatusOK, result)
}

// Facets lists the filterable values of the catalog.
func (h *Handler) Facets(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, catalog.Facets(h.Catalog.Products()))
}

// FindProduct retrieves a product by its ID.
func (h *Handler) FindProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id := r.PathValue("id")

	found, err := h.Catalog.FindByID(id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}
