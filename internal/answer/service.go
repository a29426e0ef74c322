package answer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"examdesk/internal/exam"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrExamNotFound     = errors.New("exam not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrDuplicateAnswer  = errors.New("answer already exists for this exam and user")
	ErrAlreadySubmitted = errors.New("exam has already been submitted")
	ErrExamClosed       = errors.New("exam is not open")
)

// AnswerMap maps a question id (as a string key) to the chosen symbol.
type AnswerMap map[string]string

type Service struct {
	db *sql.DB
}

type Answer struct {
	ID          int64     `json:"id"`
	ExamID      int64     `json:"exam_id"`
	UserID      int64     `json:"user_id"`
	Answers     AnswerMap `json:"answers"`
	Score       int       `json:"score"`
	Submitted   bool      `json:"submitted"`
	SubmittedAt time.Time `json:"submitted_at"`
	Progress    AnswerMap `json:"progress,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateInput struct {
	ExamID    int64
	UserID    int64
	Answers   AnswerMap
	Progress  AnswerMap
	Submitted bool
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create opens a new answer record for a participant. The exam must
// exist and be open, the user must exist, and at most one record may
// exist per (exam, user); the uniqueness constraint decides races.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Answer, error) {
	if in.ExamID <= 0 || in.UserID <= 0 {
		return nil, ErrInvalidInput
	}
	if in.Answers == nil {
		in.Answers = AnswerMap{}
	}

	gate, err := s.loadExamGate(ctx, in.ExamID)
	if err != nil {
		return nil, err
	}
	if !exam.IsOpen(gate, time.Now()) {
		return nil, ErrExamClosed
	}

	var userExists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
	`, in.UserID).Scan(&userExists); err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if !userExists {
		return nil, ErrUserNotFound
	}

	score := 0
	if in.Submitted {
		keys, err := s.loadAnswerKeys(ctx, s.db, in.ExamID)
		if err != nil {
			return nil, err
		}
		score = Score(keys, in.Answers)
	}

	answersJSON, err := json.Marshal(in.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	progressJSON, err := marshalProgress(in.Progress)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO answers (exam_id, user_id, answers, score, submitted, submitted_at, progress, created_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, now(), $6::jsonb, now())
		ON CONFLICT (exam_id, user_id) DO NOTHING
		RETURNING id, exam_id, user_id, answers, score, submitted, submitted_at, progress, created_at
	`, in.ExamID, in.UserID, answersJSON, score, in.Submitted, progressJSON)

	created, err := scanAnswerRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDuplicateAnswer
		}
		return nil, fmt.Errorf("insert answer: %w", err)
	}
	return created, nil
}

// FetchByExamAndUser returns the participant's answer record, or
// (nil, nil) when the participant has not started yet.
func (s *Service) FetchByExamAndUser(ctx context.Context, examID, userID int64) (*Answer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, exam_id, user_id, answers, score, submitted, submitted_at, progress, created_at
		FROM answers
		WHERE exam_id = $1 AND user_id = $2
	`, examID, userID)

	found, err := scanAnswerRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load answer by exam and user: %w", err)
	}
	return found, nil
}

func (s *Service) Get(ctx context.Context, answerID int64) (*Answer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, exam_id, user_id, answers, score, submitted, submitted_at, progress, created_at
		FROM answers
		WHERE id = $1
	`, answerID)

	found, err := scanAnswerRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnswerNotFound
		}
		return nil, fmt.Errorf("load answer: %w", err)
	}
	return found, nil
}

// AutosaveProgress replaces the progress map wholesale. The update is
// guarded on submitted = FALSE so a submitted record can never change.
func (s *Service) AutosaveProgress(ctx context.Context, answerID int64, progress AnswerMap) (*Answer, error) {
	if answerID <= 0 {
		return nil, ErrInvalidInput
	}
	if progress == nil {
		progress = AnswerMap{}
	}
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE answers
		SET progress = $2::jsonb
		WHERE id = $1 AND submitted = FALSE
		RETURNING id, exam_id, user_id, answers, score, submitted, submitted_at, progress, created_at
	`, answerID, progressJSON)

	updated, err := scanAnswerRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyGuardMiss(ctx, answerID)
		}
		return nil, fmt.Errorf("update progress: %w", err)
	}
	return updated, nil
}

// Submit finalizes the answer record: it scores the final answer map
// against the exam's current question set and flips the submitted flag
// in one guarded UPDATE. The transition is irreversible; a concurrent
// second submit observes the guard and fails with ErrAlreadySubmitted.
func (s *Service) Submit(ctx context.Context, answerID int64, final AnswerMap) (*Answer, error) {
	if answerID <= 0 {
		return nil, ErrInvalidInput
	}
	if final == nil {
		final = AnswerMap{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		examID    int64
		submitted bool
	)
	err = tx.QueryRowContext(ctx, `
		SELECT exam_id, submitted FROM answers WHERE id = $1 FOR UPDATE
	`, answerID).Scan(&examID, &submitted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnswerNotFound
		}
		return nil, fmt.Errorf("load answer for submit: %w", err)
	}
	if submitted {
		return nil, ErrAlreadySubmitted
	}

	keys, err := s.loadAnswerKeys(ctx, tx, examID)
	if err != nil {
		return nil, err
	}
	score := Score(keys, final)

	finalJSON, err := json.Marshal(final)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE answers
		SET answers = $2::jsonb,
			score = $3,
			submitted = TRUE,
			submitted_at = now()
		WHERE id = $1 AND submitted = FALSE
		RETURNING id, exam_id, user_id, answers, score, submitted, submitted_at, progress, created_at
	`, answerID, finalJSON, score)

	updated, err := scanAnswerRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("update submission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit tx: %w", err)
	}
	return updated, nil
}

// ListByExam returns every answer record of an exam for administrative
// review. A missing exam is an error; an exam without participants
// yields an empty list.
func (s *Service) ListByExam(ctx context.Context, examID int64) ([]Answer, error) {
	if examID <= 0 {
		return nil, ErrInvalidInput
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM exams WHERE id = $1)
	`, examID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check exam exists: %w", err)
	}
	if !exists {
		return nil, ErrExamNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exam_id, user_id, answers, score, submitted, submitted_at, progress, created_at
		FROM answers
		WHERE exam_id = $1
		ORDER BY id
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	out := make([]Answer, 0)
	for rows.Next() {
		a, err := scanAnswerRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *Service) loadExamGate(ctx context.Context, examID int64) (*exam.Exam, error) {
	var e exam.Exam
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, start_at, end_at
		FROM exams
		WHERE id = $1
	`, examID).Scan(&e.ID, &e.Status, &e.StartAt, &e.EndAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam for gate: %w", err)
	}
	return &e, nil
}

func (s *Service) loadAnswerKeys(ctx context.Context, q queryable, examID int64) ([]KeyedQuestion, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, correct_choice
		FROM questions
		WHERE exam_id = $1
		ORDER BY id
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("query answer keys: %w", err)
	}
	defer rows.Close()

	out := make([]KeyedQuestion, 0)
	for rows.Next() {
		var k KeyedQuestion
		if err := rows.Scan(&k.ID, &k.CorrectChoice); err != nil {
			return nil, fmt.Errorf("scan answer key row: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer keys: %w", err)
	}
	return out, nil
}

// classifyGuardMiss decides why a guarded update matched nothing.
func (s *Service) classifyGuardMiss(ctx context.Context, answerID int64) error {
	var submitted bool
	err := s.db.QueryRowContext(ctx, `
		SELECT submitted FROM answers WHERE id = $1
	`, answerID).Scan(&submitted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAnswerNotFound
		}
		return fmt.Errorf("classify guard miss: %w", err)
	}
	if submitted {
		return ErrAlreadySubmitted
	}
	return ErrAnswerNotFound
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnswer(sc rowScanner) (*Answer, error) {
	var (
		a           Answer
		rawAnswers  []byte
		rawProgress []byte
	)
	if err := sc.Scan(
		&a.ID, &a.ExamID, &a.UserID, &rawAnswers, &a.Score,
		&a.Submitted, &a.SubmittedAt, &rawProgress, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(rawAnswers) > 0 {
		if err := json.Unmarshal(rawAnswers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers json: %w", err)
		}
	}
	if a.Answers == nil {
		a.Answers = AnswerMap{}
	}
	if len(rawProgress) > 0 {
		if err := json.Unmarshal(rawProgress, &a.Progress); err != nil {
			return nil, fmt.Errorf("decode progress json: %w", err)
		}
	}
	return &a, nil
}

func scanAnswerRow(row *sql.Row) (*Answer, error) {
	return scanAnswer(row)
}

func scanAnswerRows(rows *sql.Rows) (*Answer, error) {
	a, err := scanAnswer(rows)
	if err != nil {
		return nil, fmt.Errorf("scan answer row: %w", err)
	}
	return a, nil
}

func marshalProgress(progress AnswerMap) (interface{}, error) {
	if progress == nil {
		return nil, nil
	}
	b, err := json.Marshal(progress)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	return b, nil
}
