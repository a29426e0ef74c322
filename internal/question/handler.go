package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"examdesk/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc questionService
}

type questionService interface {
	CreateQuestion(ctx context.Context, in CreateQuestionInput) (*Question, error)
	UpdateQuestion(ctx context.Context, in UpdateQuestionInput) (*Question, error)
	GetQuestion(ctx context.Context, questionID int64) (*Question, error)
	ListByExam(ctx context.Context, examID int64) ([]Question, error)
	ListByExamPublic(ctx context.Context, examID int64) ([]PublicQuestion, error)
	DeleteQuestion(ctx context.Context, questionID int64) error
}

type questionManageRequest struct {
	ExamID        int64    `json:"exam_id"`
	Text          string   `json:"text"`
	Choices       []string `json:"choices"`
	CorrectChoice string   `json:"correct_choice"`
}

func NewHandler(svc questionService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req questionManageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.CreateQuestion(r.Context(), CreateQuestionInput{
		ExamID:        req.ExamID,
		Text:          req.Text,
		Choices:       req.Choices,
		CorrectChoice: req.CorrectChoice,
	})
	if err != nil {
		writeQuestionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || questionID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid question id")
		return
	}
	var req questionManageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.UpdateQuestion(r.Context(), UpdateQuestionInput{
		ID:            questionID,
		Text:          req.Text,
		Choices:       req.Choices,
		CorrectChoice: req.CorrectChoice,
	})
	if err != nil {
		writeQuestionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || questionID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid question id")
		return
	}
	item, err := h.svc.GetQuestion(r.Context(), questionID)
	if err != nil {
		writeQuestionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, item)
}

func (h *Handler) ListByExam(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}
	items, err := h.svc.ListByExam(r.Context(), examID)
	if err != nil {
		writeQuestionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

// ListByExamPublic serves the participant view without correct choices.
func (h *Handler) ListByExamPublic(w http.ResponseWriter, r *http.Request) {
	examID, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil || examID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid exam id")
		return
	}
	items, err := h.svc.ListByExamPublic(r.Context(), examID)
	if err != nil {
		writeQuestionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, items)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || questionID <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid question id")
		return
	}
	if err := h.svc.DeleteQuestion(r.Context(), questionID); err != nil {
		writeQuestionError(w, r, err)
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeQuestionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid question data")
	case errors.Is(err, ErrChoiceCount), errors.Is(err, ErrUnknownSymbol):
		apiresp.WriteError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrExamNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "exam not found")
	case errors.Is(err, ErrQuestionNotFound):
		apiresp.WriteError(w, r, http.StatusNotFound, "question not found")
	default:
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}
