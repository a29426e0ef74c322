package question

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrExamNotFound     = errors.New("exam not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrChoiceCount      = errors.New("question must have exactly 4 choices")
	ErrUnknownSymbol    = errors.New("correct choice must be one of A, B, C, D")
)

// choiceSymbols is the fixed answer symbol enumeration.
var choiceSymbols = map[string]struct{}{"A": {}, "B": {}, "C": {}, "D": {}}

type Service struct {
	db *sql.DB
}

type Question struct {
	ID            int64     `json:"id"`
	ExamID        int64     `json:"exam_id"`
	Text          string    `json:"text"`
	Choices       []string  `json:"choices"`
	CorrectChoice string    `json:"correct_choice"`
	CreatedAt     time.Time `json:"created_at"`
}

// PublicQuestion is the participant-facing view; it never carries the key.
type PublicQuestion struct {
	ID        int64     `json:"id"`
	ExamID    int64     `json:"exam_id"`
	Text      string    `json:"text"`
	Choices   []string  `json:"choices"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateQuestionInput struct {
	ExamID        int64
	Text          string
	Choices       []string
	CorrectChoice string
}

type UpdateQuestionInput struct {
	ID            int64
	Text          string
	Choices       []string
	CorrectChoice string
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*Question, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.ExamID <= 0 || in.Text == "" {
		return nil, ErrInvalidInput
	}
	choices, err := normalizeChoices(in.Choices)
	if err != nil {
		return nil, err
	}
	correct, err := normalizeCorrectChoice(in.CorrectChoice)
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM exams WHERE id = $1)
	`, in.ExamID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check exam exists: %w", err)
	}
	if !exists {
		return nil, ErrExamNotFound
	}

	choicesJSON, err := json.Marshal(choices)
	if err != nil {
		return nil, fmt.Errorf("encode choices: %w", err)
	}

	q := Question{}
	var rawChoices []byte
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO questions (exam_id, text, choices, correct_choice, created_at)
		VALUES ($1, $2, $3::jsonb, $4, now())
		RETURNING id, exam_id, text, choices, correct_choice, created_at
	`, in.ExamID, in.Text, choicesJSON, correct).Scan(
		&q.ID, &q.ExamID, &q.Text, &rawChoices, &q.CorrectChoice, &q.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	if err := json.Unmarshal(rawChoices, &q.Choices); err != nil {
		return nil, fmt.Errorf("decode choices: %w", err)
	}
	return &q, nil
}

func (s *Service) UpdateQuestion(ctx context.Context, in UpdateQuestionInput) (*Question, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.ID <= 0 || in.Text == "" {
		return nil, ErrInvalidInput
	}
	choices, err := normalizeChoices(in.Choices)
	if err != nil {
		return nil, err
	}
	correct, err := normalizeCorrectChoice(in.CorrectChoice)
	if err != nil {
		return nil, err
	}

	choicesJSON, err := json.Marshal(choices)
	if err != nil {
		return nil, fmt.Errorf("encode choices: %w", err)
	}

	q := Question{}
	var rawChoices []byte
	err = s.db.QueryRowContext(ctx, `
		UPDATE questions
		SET text = $2,
			choices = $3::jsonb,
			correct_choice = $4
		WHERE id = $1
		RETURNING id, exam_id, text, choices, correct_choice, created_at
	`, in.ID, in.Text, choicesJSON, correct).Scan(
		&q.ID, &q.ExamID, &q.Text, &rawChoices, &q.CorrectChoice, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	if err := json.Unmarshal(rawChoices, &q.Choices); err != nil {
		return nil, fmt.Errorf("decode choices: %w", err)
	}
	return &q, nil
}

func (s *Service) GetQuestion(ctx context.Context, questionID int64) (*Question, error) {
	q := Question{}
	var rawChoices []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, exam_id, text, choices, correct_choice, created_at
		FROM questions
		WHERE id = $1
	`, questionID).Scan(&q.ID, &q.ExamID, &q.Text, &rawChoices, &q.CorrectChoice, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("load question: %w", err)
	}
	if err := json.Unmarshal(rawChoices, &q.Choices); err != nil {
		return nil, fmt.Errorf("decode choices: %w", err)
	}
	return &q, nil
}

func (s *Service) ListByExam(ctx context.Context, examID int64) ([]Question, error) {
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
		SELECT id, exam_id, text, choices, correct_choice, created_at
		FROM questions
		WHERE exam_id = $1
		ORDER BY id
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make([]Question, 0)
	for rows.Next() {
		var q Question
		var rawChoices []byte
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &rawChoices, &q.CorrectChoice, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}
		if err := json.Unmarshal(rawChoices, &q.Choices); err != nil {
			return nil, fmt.Errorf("decode choices: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

func (s *Service) ListByExamPublic(ctx context.Context, examID int64) ([]PublicQuestion, error) {
	items, err := s.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	out := make([]PublicQuestion, 0, len(items))
	for _, q := range items {
		out = append(out, PublicQuestion{
			ID:        q.ID,
			ExamID:    q.ExamID,
			Text:      q.Text,
			Choices:   q.Choices,
			CreatedAt: q.CreatedAt,
		})
	}
	return out, nil
}

// DeleteQuestion removes a question and prunes its id key from the
// answer and progress maps of every answer in the same exam. The prune
// runs as a single filtered UPDATE inside the same transaction, so no
// answer is ever left pointing at a deleted question.
func (s *Service) DeleteQuestion(ctx context.Context, questionID int64) error {
	if questionID <= 0 {
		return ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var examID int64
	err = tx.QueryRowContext(ctx, `
		SELECT exam_id FROM questions WHERE id = $1 FOR UPDATE
	`, questionID).Scan(&examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("load question exam: %w", err)
	}

	key := fmt.Sprintf("%d", questionID)
	if _, err := tx.ExecContext(ctx, `
		UPDATE answers
		SET answers = answers - $2::text,
			progress = progress - $2::text
		WHERE exam_id = $1
	`, examID, key); err != nil {
		return fmt.Errorf("prune answer maps: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

func normalizeChoices(choices []string) ([]string, error) {
	if len(choices) != 4 {
		return nil, ErrChoiceCount
	}
	out := make([]string, 0, 4)
	for _, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, ErrChoiceCount
		}
		out = append(out, c)
	}
	return out, nil
}

func normalizeCorrectChoice(symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if _, ok := choiceSymbols[symbol]; !ok {
		return "", ErrUnknownSymbol
	}
	return symbol, nil
}
