package rest

import (
	"errors"
	"net/http"

	"github.com/sabowaryan/sabowaryantech/internal/platform/web"
	"github.com/sabowaryan/sabowaryantech/internal/preferences"
)

type themeRequest struct {
	Theme preferences.Theme `json:"theme" validate:"required,oneof=light dark system"`
}

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, s.Preferences.Get())
}

// UpdatePreferences merges the fields present in the body.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var patch preferences.Patch
	if !web.DecodeJSON(w, r, mLogger, &patch) {
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	updated, err := s.Preferences.Update(r.Context(), patch)
	if err != nil {
		h.respondPreferenceError(w, r, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req themeRequest
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
	updated, err := s.Preferences.SetTheme(r.Context(), req.Theme)
	if err != nil {
		h.respondPreferenceError(w, r, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) ToggleSidebar(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, s.Preferences.ToggleSidebar(r.Context()))
}

func (h *Handler) respondPreferenceError(w http.ResponseWriter, r *http.Request, err error) {
	mLogger := h.loggerWithReqID(r)
	if errors.Is(err, preferences.ErrInvalidPreference) {
		mLogger.WarnContext(r.Context(), "Preference update rejected", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		return
	}
	mLogger.ErrorContext(r.Context(), "Error updating preferences", "error", err)
	web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to update preferences")
}
