package audit

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/mirror"
	"github.com/staffsync/staff-management/internal/transport"
	"github.com/staffsync/staff-management/pkg/logger"
)

// Handler serves the mirrored audit log and the active notifications.
type Handler struct {
	*transport.BaseHandler
	entries *mirror.Mirror[datamodel.AuditEntry]
	center  *Center
}

func NewHandler(entries *mirror.Mirror[datamodel.AuditEntry], center *Center) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		entries:     entries,
		center:      center,
	}
}

// ListEntries returns audit log entries, newest first. An optional limit
// query parameter caps the page.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	items := h.entries.Items()
	sort.Slice(items, func(i, j int) bool { return items[i].At.After(items[j].At) })

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(items) {
			items = items[:limit]
		}
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": items,
	})
}

// ListNotifications returns the not-yet-expired notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": h.center.Active(),
	})
}

// DismissNotification removes one notification ahead of its TTL.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, "notification id is required")
		return
	}
	h.center.Dismiss(id)
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}
