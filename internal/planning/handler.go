package planning

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/transport"
	"github.com/staffsync/staff-management/pkg/logger"
)

type ServiceAPI interface {
	List(ctx context.Context) []datamodel.PlanningEntry
	ForEmployee(ctx context.Context, employeeID int64) []datamodel.PlanningEntry
	Set(ctx context.Context, dto SetShiftDTO) (datamodel.PlanningEntry, error)
	Clear(ctx context.Context, employeeID int64, date time.Time) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("employee_id"); raw != "" {
		employeeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid employee ID")
			return
		}
		h.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"planning": h.Service.ForEmployee(r.Context(), employeeID),
		})
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"planning": h.Service.List(r.Context()),
	})
}

func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	var dto SetShiftDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Set: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.Service.Set(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid employee ID")
		return
	}
	date, err := time.Parse(datamodel.DateLayout, chi.URLParam(r, "date"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	if err := h.Service.Clear(r.Context(), employeeID, date); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
