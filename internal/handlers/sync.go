package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/models"
)

func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Scheduler.TriggerSync(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Status.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) listQueue(w http.ResponseWriter, r *http.Request) {
	var filter func(*models.SyncQueueItem) bool
	if status := models.QueueStatus(r.URL.Query().Get("status")); status != "" {
		filter = func(item *models.SyncQueueItem) bool { return item.Status == status }
	}
	items, err := h.Queue.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) retryQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := queueItemID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.Queue.RetryFailed(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) abandonQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := queueItemID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Queue.Abandon(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queueItemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, &apperr.ValidationError{Field: "id", Message: "must be an integer"}
	}
	return id, nil
}
