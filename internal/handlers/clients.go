package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/intakesync/internal/models"
)

func (h *Handler) submitClient(w http.ResponseWriter, r *http.Request) {
	var payload models.ClientPayload
	if err := decodeJSON(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Clients.Submit(r.Context(), payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	status := models.RecordStatus(r.URL.Query().Get("status"))
	records, err := h.Clients.List(r.Context(), status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	record, err := h.Clients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
