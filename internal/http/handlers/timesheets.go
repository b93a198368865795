package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/billable/timesheet-api/internal/http/respond"
	"github.com/billable/timesheet-api/internal/middleware"
	"github.com/billable/timesheet-api/internal/models/dto"
	"github.com/billable/timesheet-api/internal/storage"
	"github.com/billable/timesheet-api/internal/timesheet"
)

// TimesheetHandler exposes the authenticated timesheet CRUD endpoints. It
// expects the authentication middleware to have placed a principal on the
// request context.
type TimesheetHandler struct {
	svc *timesheet.Service
	log *slog.Logger
}

// NewTimesheetHandler constructs the handler.
func NewTimesheetHandler(svc *timesheet.Service, log *slog.Logger) *TimesheetHandler {
	return &TimesheetHandler{svc: svc, log: log}
}

// Register attaches timesheet routes to the mux.
func (h *TimesheetHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/timesheets", h.handleCreate)
	mux.HandleFunc("GET /api/timesheets", h.handleList)
	mux.HandleFunc("GET /api/timesheets/{id}", h.handleGet)
	mux.HandleFunc("PUT /api/timesheets/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/timesheets/{id}", h.handleDelete)
}

func (h *TimesheetHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	var req dto.SaveTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	view, err := h.svc.Create(r.Context(), principal.UserID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view)
}

func (h *TimesheetHandler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "skip must be an integer")
		return
	}
	take, err := queryInt(r, "take", timesheet.DefaultTake)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "take must be an integer")
		return
	}
	views, err := h.svc.List(r.Context(), principal.UserID, skip, take)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if views == nil {
		views = []dto.TimesheetView{}
	}
	respond.JSON(w, http.StatusOK, views)
}

func (h *TimesheetHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		// Malformed ids look exactly like missing ones.
		respond.Error(w, http.StatusNotFound, "timesheet not found")
		return
	}
	view, err := h.svc.Get(r.Context(), principal.UserID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

func (h *TimesheetHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "timesheet not found")
		return
	}
	var req dto.SaveTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	view, err := h.svc.Update(r.Context(), principal.UserID, id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

func (h *TimesheetHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "timesheet not found")
		return
	}
	if err := h.svc.Delete(r.Context(), principal.UserID, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TimesheetHandler) writeError(w http.ResponseWriter, err error) {
	var verr *timesheet.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "timesheet not found")
	default:
		h.log.Error("timesheet request failed", slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
