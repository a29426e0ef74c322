package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"examdesk/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc examService
}

type examService interface {
	CreateExam(ctx context.Context, in CreateExamInput) (*Exam, error)
	UpdateExam(ctx context.Context, in UpdateExamInput) (*Exam, error)
	GetExam(ctx context.Context, examID int64) (*Exam, error)
	DeleteExam(ctx context.Context, examID int64) error
	ListAdminExams(ctx context.Context, includeInactive bool) ([]Exam, error)
	ListOpenExams(ctx context.Context, now time.Time) ([]Exam, error)
}

type examManageRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	StartAt         string `json:"start_at"`
	EndAt           string `json:"end_at"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
}

func NewHandler(svc examService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListOpen(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListOpenExams(r.Context(), time.Now())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	includeInactive := strings.TrimSpace(r.URL.Query().Get("all")) == "1"
	items, err := h.svc.ListAdminExams(r.Context(), includeInactive)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}
	item, err := h.svc.GetExam(r.Context(), examID)
	if err != nil {
		if errors.Is(err, ErrExamNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, "exam not found")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req examManageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	startAt, endAt, err := parseExamSchedule(req.StartAt, req.EndAt)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.svc.CreateExam(r.Context(), CreateExamInput{
		Title:           req.Title,
		Description:     req.Description,
		StartAt:         startAt,
		EndAt:           endAt,
		DurationMinutes: req.DurationMinutes,
		Status:          req.Status,
	})
	if err != nil {
		writeExamError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}
	var req examManageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	startAt, endAt, err := parseExamSchedule(req.StartAt, req.EndAt)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.svc.UpdateExam(r.Context(), UpdateExamInput{
		ID:              examID,
		Title:           req.Title,
		Description:     req.Description,
		StartAt:         startAt,
		EndAt:           endAt,
		DurationMinutes: req.DurationMinutes,
		Status:          req.Status,
	})
	if err != nil {
		writeExamError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}
	if err := h.svc.DeleteExam(r.Context(), examID); err != nil {
		writeExamError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeExamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam data")
	case errors.Is(err, ErrDateOrder):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrExamNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "exam not found")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func parseExamSchedule(startRaw, endRaw string) (time.Time, time.Time, error) {
	parseOne := func(raw, field string) (time.Time, error) {
		v := strings.TrimSpace(raw)
		if v == "" {
			return time.Time{}, errors.New(field + " is required")
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, errors.New(field + " must be RFC3339")
		}
		return t, nil
	}
	startAt, err := parseOne(startRaw, "start_at")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endAt, err := parseOne(endRaw, "end_at")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startAt, endAt, nil
}
