package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrExamNotFound = errors.New("exam not found")
	ErrDateOrder    = errors.New("end_at must be after start_at")
)

type Service struct {
	db                 *sql.DB
	defaultExamMinutes int
}

type Exam struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateExamInput struct {
	Title           string
	Description     string
	StartAt         time.Time
	EndAt           time.Time
	DurationMinutes int
	Status          string
}

type UpdateExamInput struct {
	ID              int64
	Title           string
	Description     string
	StartAt         time.Time
	EndAt           time.Time
	DurationMinutes int
	Status          string
}

func NewService(db *sql.DB, defaultExamMinutes int) *Service {
	if defaultExamMinutes <= 0 {
		defaultExamMinutes = 90
	}
	return &Service{db: db, defaultExamMinutes: defaultExamMinutes}
}

func (s *Service) CreateExam(ctx context.Context, in CreateExamInput) (*Exam, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, ErrInvalidInput
	}
	status, err := normalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if in.StartAt.IsZero() || in.EndAt.IsZero() || !in.EndAt.After(in.StartAt) {
		return nil, ErrDateOrder
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = s.defaultExamMinutes
	}

	var e Exam
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO exams (title, description, start_at, end_at, duration_minutes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, title, description, start_at, end_at, duration_minutes, status, created_at
	`, in.Title, strings.TrimSpace(in.Description), in.StartAt, in.EndAt, in.DurationMinutes, status).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartAt, &e.EndAt, &e.DurationMinutes, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exam: %w", err)
	}
	return &e, nil
}

func (s *Service) UpdateExam(ctx context.Context, in UpdateExamInput) (*Exam, error) {
	if in.ID <= 0 {
		return nil, ErrInvalidInput
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, ErrInvalidInput
	}
	status, err := normalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if in.StartAt.IsZero() || in.EndAt.IsZero() || !in.EndAt.After(in.StartAt) {
		return nil, ErrDateOrder
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = s.defaultExamMinutes
	}

	var e Exam
	err = s.db.QueryRowContext(ctx, `
		UPDATE exams
		SET title = $2,
			description = $3,
			start_at = $4,
			end_at = $5,
			duration_minutes = $6,
			status = $7
		WHERE id = $1
		RETURNING id, title, description, start_at, end_at, duration_minutes, status, created_at
	`, in.ID, in.Title, strings.TrimSpace(in.Description), in.StartAt, in.EndAt, in.DurationMinutes, status).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartAt, &e.EndAt, &e.DurationMinutes, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("update exam: %w", err)
	}
	return &e, nil
}

func (s *Service) GetExam(ctx context.Context, examID int64) (*Exam, error) {
	var e Exam
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, start_at, end_at, duration_minutes, status, created_at
		FROM exams
		WHERE id = $1
	`, examID).Scan(&e.ID, &e.Title, &e.Description, &e.StartAt, &e.EndAt, &e.DurationMinutes, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}
	return &e, nil
}

// DeleteExam removes an exam with all dependent rows in one transaction:
// answers first, then questions, then the exam row itself.
func (s *Service) DeleteExam(ctx context.Context, examID int64) error {
	if examID <= 0 {
		return ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete exam answers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete exam questions: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, examID)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete exam rows affected: %w", err)
	}
	if affected == 0 {
		return ErrExamNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

func (s *Service) ListAdminExams(ctx context.Context, includeInactive bool) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, start_at, end_at, duration_minutes, status, created_at
		FROM exams
		WHERE $1 OR status = 'active'
		ORDER BY start_at DESC, id DESC
	`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("query exams: %w", err)
	}
	defer rows.Close()

	return scanExams(rows)
}

// ListOpenExams returns the exams a participant may currently see,
// filtered through the availability gate.
func (s *Service) ListOpenExams(ctx context.Context, now time.Time) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, start_at, end_at, duration_minutes, status, created_at
		FROM exams
		WHERE status = 'active'
		ORDER BY start_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query active exams: %w", err)
	}
	defer rows.Close()

	all, err := scanExams(rows)
	if err != nil {
		return nil, err
	}

	open := make([]Exam, 0, len(all))
	for i := range all {
		if IsOpen(&all[i], now) {
			open = append(open, all[i])
		}
	}
	return open, nil
}

func scanExams(rows *sql.Rows) ([]Exam, error) {
	out := make([]Exam, 0)
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartAt, &e.EndAt, &e.DurationMinutes, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exam row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exams: %w", err)
	}
	return out, nil
}

func normalizeStatus(status string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(status)) {
	case "", StatusActive:
		return StatusActive, nil
	case StatusInactive:
		return StatusInactive, nil
	default:
		return "", ErrInvalidInput
	}
}
