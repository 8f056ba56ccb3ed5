package handlers

import (
	"net/http"

	"github.com/prudhvinik1/intakesync/internal/services"
)

func (h *Handler) importLegacy(w http.ResponseWriter, r *http.Request) {
	var export services.LegacyExport
	if err := decodeJSON(r, &export); err != nil {
		h.writeError(w, r, err)
		return
	}
	report, err := h.Maintenance.ImportLegacy(r.Context(), export)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.Maintenance.CleanupOldData(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
