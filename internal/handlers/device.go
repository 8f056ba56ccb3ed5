package handlers

import (
	"net/http"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/services"
)

type connectivityRequest struct {
	Online *bool `json:"online"`
}

type sessionRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) setConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Online == nil {
		h.writeError(w, r, &apperr.ValidationError{Field: "online", Message: "is required"})
		return
	}
	h.Connectivity.SetOnline(*req.Online, services.SourcePlatform)
	writeJSON(w, http.StatusOK, h.Connectivity.Presence())
}

func (h *Handler) visibilityRegained(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.OnVisibilityRegained()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) setSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.Sessions.SetTokens(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expires_at": session.ExpiresAt})
}

func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Clear(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
