package rest

import (
	"errors"
	"net/http"

	"github.com/sabowaryan/sabowaryantech/internal/platform/web"
	"github.com/sabowaryan/sabowaryantech/internal/session"
)

type sessionView struct {
	State   session.State    `json:"state"`
	User    *session.User    `json:"user,omitempty"`
	Session *session.Session `json:"session,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func viewSession(s *session.Store) sessionView {
	user, sess, ok := s.Current()
	if !ok {
		return sessionView{State: session.StateAnonymous}
	}
	return sessionView{State: session.StateAuthenticated, User: &user, Session: &sess}
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, viewSession(s.Session))
}

// Login authenticates the form and signs the shopper in.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var form session.LoginForm
	if !web.DecodeJSON(w, r, mLogger, &form) {
		return
	}
	if err := h.validate.Struct(form); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}
	user, err := h.Auth.Authenticate(r.Context(), form)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			mLogger.WarnContext(r.Context(), "Login rejected")
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error authenticating", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to log in")
		return
	}
	sess, err := h.Tokens.Issue(user)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error issuing session", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to issue session")
		return
	}
	h.signIn(w, r, user, sess)
}

// Refresh exchanges a refresh token for a new session.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req refreshRequest
	if !web.DecodeJSON(w, r, mLogger, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}
	user, sess, err := h.Tokens.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			mLogger.WarnContext(r.Context(), "Refresh rejected", "error", err)
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error refreshing session", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to refresh session")
		return
	}
	h.signIn(w, r, user, sess)
}

// signIn validates the issued session before it reaches the shopper's store.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, user session.User, sess session.Session) {
	mLogger := h.loggerWithReqID(r)
	if err := h.validate.Struct(sess); err != nil {
		mLogger.ErrorContext(r.Context(), "Issued session is invalid", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to issue session")
		return
	}
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	s.Session.Login(user, sess)
	mLogger.InfoContext(r.Context(), "Shopper signed in", "user_id", user.ID, "client_id", s.ID)
	web.RespondJSON(w, mLogger, http.StatusOK, viewSession(s.Session))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	s, ok := h.shopper(w, r, mLogger)
	if !ok {
		return
	}
	s.Session.Logout()
	w.WriteHeader(http.StatusNoContent)
}
