package report

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

var ErrExamNotFound = errors.New("exam not found")

type Service struct {
	db *sql.DB
}

type ExamSummary struct {
	ExamID       int64   `json:"exam_id"`
	Participants int     `json:"participants"`
	Submitted    int     `json:"submitted"`
	AverageScore float64 `json:"average_score"`
	HighestScore int     `json:"highest_score"`
	LowestScore  int     `json:"lowest_score"`
}

type resultRow struct {
	Username    string
	FullName    string
	Score       int
	Submitted   bool
	SubmittedAt time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// SummaryByExam aggregates scores over submitted answers only;
// unsubmitted records count toward participants but not the score stats.
func (s *Service) SummaryByExam(ctx context.Context, examID int64) (*ExamSummary, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM exams WHERE id = $1)
	`, examID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check exam exists: %w", err)
	}
	if !exists {
		return nil, ErrExamNotFound
	}

	summary := &ExamSummary{ExamID: examID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE submitted),
			COALESCE(AVG(score) FILTER (WHERE submitted), 0),
			COALESCE(MAX(score) FILTER (WHERE submitted), 0),
			COALESCE(MIN(score) FILTER (WHERE submitted), 0)
		FROM answers
		WHERE exam_id = $1
	`, examID).Scan(
		&summary.Participants,
		&summary.Submitted,
		&summary.AverageScore,
		&summary.HighestScore,
		&summary.LowestScore,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate exam scores: %w", err)
	}
	return summary, nil
}

// ExportResultsExcel renders the per-participant results of an exam as
// an xlsx workbook.
func (s *Service) ExportResultsExcel(ctx context.Context, examID int64) ([]byte, error) {
	var examTitle string
	err := s.db.QueryRowContext(ctx, `
		SELECT title FROM exams WHERE id = $1
	`, examID).Scan(&examTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam title: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.username, u.full_name, a.score, a.submitted, a.submitted_at
		FROM answers a
		JOIN users u ON u.id = a.user_id
		WHERE a.exam_id = $1
		ORDER BY u.username
	`, examID)
	if err != nil {
		return nil, fmt.Errorf("query exam results: %w", err)
	}
	defer rows.Close()

	items := make([]resultRow, 0)
	for rows.Next() {
		var it resultRow
		if err := rows.Scan(&it.Username, &it.FullName, &it.Score, &it.Submitted, &it.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam results: %w", err)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", examTitle)

	headers := []string{"username", "full_name", "score", "submitted", "submitted_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, it := range items {
		row := i + 3
		submittedAt := ""
		if it.Submitted {
			submittedAt = it.SubmittedAt.Format("2006-01-02 15:04:05")
		}
		values := []any{
			it.Username,
			it.FullName,
			it.Score,
			it.Submitted,
			submittedAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "E", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
