package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"examdesk/internal/auth"

	"github.com/go-chi/chi/v5"
)

type mockAnswerService struct {
	createFn             func(ctx context.Context, in CreateInput) (*Answer, error)
	fetchByExamAndUserFn func(ctx context.Context, examID, userID int64) (*Answer, error)
	getFn                func(ctx context.Context, answerID int64) (*Answer, error)
	autosaveProgressFn   func(ctx context.Context, answerID int64, progress AnswerMap) (*Answer, error)
	submitFn             func(ctx context.Context, answerID int64, final AnswerMap) (*Answer, error)
	listByExamFn         func(ctx context.Context, examID int64) ([]Answer, error)
}

func (m *mockAnswerService) Create(ctx context.Context, in CreateInput) (*Answer, error) {
	if m.createFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createFn(ctx, in)
}

func (m *mockAnswerService) FetchByExamAndUser(ctx context.Context, examID, userID int64) (*Answer, error) {
	if m.fetchByExamAndUserFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.fetchByExamAndUserFn(ctx, examID, userID)
}

func (m *mockAnswerService) Get(ctx context.Context, answerID int64) (*Answer, error) {
	if m.getFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getFn(ctx, answerID)
}

func (m *mockAnswerService) AutosaveProgress(ctx context.Context, answerID int64, progress AnswerMap) (*Answer, error) {
	if m.autosaveProgressFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.autosaveProgressFn(ctx, answerID, progress)
}

func (m *mockAnswerService) Submit(ctx context.Context, answerID int64, final AnswerMap) (*Answer, error) {
	if m.submitFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.submitFn(ctx, answerID, final)
}

func (m *mockAnswerService) ListByExam(ctx context.Context, examID int64) ([]Answer, error) {
	if m.listByExamFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listByExamFn(ctx, examID)
}

func newTestRouter(svc answerService) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Post("/exams/{examID}/answers", h.Start)
	r.Get("/exams/{examID}/answers/me", h.Mine)
	r.Put("/answers/{id}/progress", h.Autosave)
	r.Post("/answers/{id}/submit", h.Submit)
	r.Get("/admin/exams/{examID}/answers", h.ListByExam)
	return r
}

func doRequest(t *testing.T, router http.Handler, user *auth.User, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if user != nil {
		req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func student(id int64) *auth.User {
	return &auth.User{ID: id, Username: "student", Role: "student"}
}

func TestStartCreatesAnswer(t *testing.T) {
	svc := &mockAnswerService{
		createFn: func(ctx context.Context, in CreateInput) (*Answer, error) {
			if in.ExamID != 7 || in.UserID != 42 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &Answer{ID: 1, ExamID: 7, UserID: 42, Answers: AnswerMap{}, CreatedAt: time.Now()}, nil
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodPost, "/exams/7/answers", map[string]any{})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestStartDuplicateConflict(t *testing.T) {
	svc := &mockAnswerService{
		createFn: func(ctx context.Context, in CreateInput) (*Answer, error) {
			return nil, ErrDuplicateAnswer
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodPost, "/exams/7/answers", map[string]any{})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestStartClosedExam(t *testing.T) {
	svc := &mockAnswerService{
		createFn: func(ctx context.Context, in CreateInput) (*Answer, error) {
			return nil, ErrExamClosed
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodPost, "/exams/7/answers", map[string]any{})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestStartUnauthorized(t *testing.T) {
	w := doRequest(t, newTestRouter(&mockAnswerService{}), nil, http.MethodPost, "/exams/7/answers", map[string]any{})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMineAbsentIsNotAnError(t *testing.T) {
	svc := &mockAnswerService{
		fetchByExamAndUserFn: func(ctx context.Context, examID, userID int64) (*Answer, error) {
			return nil, nil
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodGet, "/exams/7/answers/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var env struct {
		OK   bool        `json:"ok"`
		Data interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !env.OK || env.Data != nil {
		t.Fatalf("expected ok with null data, got %s", w.Body.String())
	}
}

func TestAutosaveOnSubmittedAnswerConflicts(t *testing.T) {
	svc := &mockAnswerService{
		getFn: func(ctx context.Context, answerID int64) (*Answer, error) {
			return &Answer{ID: answerID, UserID: 42, Submitted: true}, nil
		},
		autosaveProgressFn: func(ctx context.Context, answerID int64, progress AnswerMap) (*Answer, error) {
			return nil, ErrAlreadySubmitted
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodPut, "/answers/5/progress", map[string]any{
		"progress": map[string]string{"1": "A"},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestAutosaveForbiddenForOtherUser(t *testing.T) {
	svc := &mockAnswerService{
		getFn: func(ctx context.Context, answerID int64) (*Answer, error) {
			return &Answer{ID: answerID, UserID: 99}, nil
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodPut, "/answers/5/progress", map[string]any{
		"progress": map[string]string{"1": "A"},
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestAutosaveMissingAnswerNotFound(t *testing.T) {
	svc := &mockAnswerService{
		getFn: func(ctx context.Context, answerID int64) (*Answer, error) {
			return nil, ErrAnswerNotFound
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodPut, "/answers/5/progress", map[string]any{
		"progress": map[string]string{"1": "A"},
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSubmitReturnsScoredAnswer(t *testing.T) {
	svc := &mockAnswerService{
		getFn: func(ctx context.Context, answerID int64) (*Answer, error) {
			return &Answer{ID: answerID, UserID: 42}, nil
		},
		submitFn: func(ctx context.Context, answerID int64, final AnswerMap) (*Answer, error) {
			return &Answer{ID: answerID, UserID: 42, Answers: final, Score: 50, Submitted: true, SubmittedAt: time.Now()}, nil
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodPost, "/answers/5/submit", map[string]any{
		"answers": map[string]string{"1": "C"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var env struct {
		Data Answer `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !env.Data.Submitted || env.Data.Score != 50 {
		t.Fatalf("unexpected submitted answer: %+v", env.Data)
	}
}

func TestSubmitTwiceConflicts(t *testing.T) {
	svc := &mockAnswerService{
		getFn: func(ctx context.Context, answerID int64) (*Answer, error) {
			return &Answer{ID: answerID, UserID: 42, Submitted: true}, nil
		},
		submitFn: func(ctx context.Context, answerID int64, final AnswerMap) (*Answer, error) {
			return nil, ErrAlreadySubmitted
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodPost, "/answers/5/submit", map[string]any{
		"answers": map[string]string{"1": "C"},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestListByExamMissingExam(t *testing.T) {
	svc := &mockAnswerService{
		listByExamFn: func(ctx context.Context, examID int64) ([]Answer, error) {
			return nil, ErrExamNotFound
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodGet, "/admin/exams/7/answers", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListByExamEmptyIsOK(t *testing.T) {
	svc := &mockAnswerService{
		listByExamFn: func(ctx context.Context, examID int64) ([]Answer, error) {
			return []Answer{}, nil
		},
	}
	w := doRequest(t, newTestRouter(svc), student(42), http.MethodGet, "/admin/exams/7/answers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
