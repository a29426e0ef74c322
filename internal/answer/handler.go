package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"examdesk/internal/app/apiresp"
	"examdesk/internal/auth"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc answerService
}

type answerService interface {
	Create(ctx context.Context, in CreateInput) (*Answer, error)
	FetchByExamAndUser(ctx context.Context, examID, userID int64) (*Answer, error)
	Get(ctx context.Context, answerID int64) (*Answer, error)
	AutosaveProgress(ctx context.Context, answerID int64, progress AnswerMap) (*Answer, error)
	Submit(ctx context.Context, answerID int64, final AnswerMap) (*Answer, error)
	ListByExam(ctx context.Context, examID int64) ([]Answer, error)
}

type startRequest struct {
	Answers  AnswerMap `json:"answers"`
	Progress AnswerMap `json:"progress"`
}

type autosaveRequest struct {
	Progress AnswerMap `json:"progress"`
}

type submitRequest struct {
	Answers AnswerMap `json:"answers"`
}

func NewHandler(svc answerService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	examID, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = startRequest{}
	}

	created, err := h.svc.Create(r.Context(), CreateInput{
		ExamID:   examID,
		UserID:   user.ID,
		Answers:  req.Answers,
		Progress: req.Progress,
	})
	if err != nil {
		writeAnswerError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, created)
}

// Mine returns the caller's answer record for an exam. A participant
// who has not started yet gets data = null, not an error.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	examID, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}

	found, err := h.svc.FetchByExamAndUser(r.Context(), examID, user.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, found)
}

func (h *Handler) Autosave(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	answerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || answerID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid answer id")
		return
	}

	var req autosaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authorizeAnswerAccess(r, user, answerID); err != nil {
		writeAnswerAccessError(w, r, err)
		return
	}

	updated, err := h.svc.AutosaveProgress(r.Context(), answerID, req.Progress)
	if err != nil {
		writeAnswerError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, updated)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	answerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || answerID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid answer id")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authorizeAnswerAccess(r, user, answerID); err != nil {
		writeAnswerAccessError(w, r, err)
		return
	}

	updated, err := h.svc.Submit(r.Context(), answerID, req.Answers)
	if err != nil {
		writeAnswerError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, updated)
}

func (h *Handler) ListByExam(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}

	items, err := h.svc.ListByExam(r.Context(), examID)
	if err != nil {
		writeAnswerError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) authorizeAnswerAccess(r *http.Request, user *auth.User, answerID int64) error {
	if user.Role == "admin" {
		return nil
	}

	found, err := h.svc.Get(r.Context(), answerID)
	if err != nil {
		return err
	}
	if found.UserID != user.ID {
		return auth.ErrForbidden
	}
	return nil
}

func writeAnswerAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAnswerNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		apiresp.WriteError(w, r, http.StatusForbidden, "forbidden")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeAnswerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request")
	case errors.Is(err, ErrExamNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrAnswerNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateAnswer), errors.Is(err, ErrAlreadySubmitted):
		apiresp.WriteError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, ErrExamClosed):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
