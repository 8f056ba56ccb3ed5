package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	result, err := h.Cache.Lookup(r.Context(), chi.URLParam(r, "name"), h.Connectivity.IsOnline())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
