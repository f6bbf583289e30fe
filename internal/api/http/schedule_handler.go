package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/service"
)

// ScheduleHandler serves payment schedules: listing, revenue declaration and
// on-demand materialization.
type ScheduleHandler struct {
	schedules service.ScheduleService
}

func NewScheduleHandler(schedules service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	franchiseeID, err := pathInt32(r, "franchiseeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := domain.ScheduleStatus(r.URL.Query().Get("status"))
	schedules, err := h.schedules.List(r.Context(), franchiseeID, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schedules": schedules})
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	schedule, err := h.schedules.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

type recordRevenueRequest struct {
	Revenue decimal.Decimal `json:"revenue"`
}

func (h *ScheduleHandler) RecordRevenue(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recordRevenueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.schedules.RecordRevenue(r.Context(), id, req.Revenue); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *ScheduleHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.schedules.Materialize(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *ScheduleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.schedules.Cancel(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
