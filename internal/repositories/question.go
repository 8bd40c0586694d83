package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
)

// QuestionRepository reads and manages questions.
type QuestionRepository struct {
	db *sql.DB
}

// NewQuestionRepository creates a new [QuestionRepository] with the given database connection
func NewQuestionRepository(db *sql.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Active lists active questions ordered by display order
func (r *QuestionRepository) Active(ctx context.Context) ([]models.Question, error) {
	return r.list(ctx, true)
}

// List lists every question, active or not
func (r *QuestionRepository) List(ctx context.Context) ([]models.Question, error) {
	return r.list(ctx, false)
}

// Get retrieves a question by ID
func (r *QuestionRepository) Get(ctx context.Context, id string) (*models.Question, error) {
	query := `SELECT id, text, display_order, active FROM questions WHERE id = ?`

	var q models.Question
	err := r.db.QueryRowContext(ctx, query, id).Scan(&q.ID, &q.Text, &q.DisplayOrder, &q.Active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("question not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query question: %w", err)
	}
	return &q, nil
}

// Create inserts a question. A missing ID is generated and a zero display order places the
// question after the existing ones.
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = shared.GenerateID()
	}
	q.Text = strings.TrimSpace(q.Text)
	if err := q.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if q.DisplayOrder == 0 {
		var last sql.NullInt64
		if err := r.db.QueryRowContext(ctx, `SELECT MAX(display_order) FROM questions`).Scan(&last); err != nil {
			return fmt.Errorf("failed to read display order: %w", err)
		}
		q.DisplayOrder = int(last.Int64) + 1
	}

	query := `INSERT INTO questions (id, text, display_order, active) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, q.ID, q.Text, q.DisplayOrder, q.Active); err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

// SetActive shows or hides a question
func (r *QuestionRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE questions SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("question not found: %s", id)
	}
	return nil
}

func (r *QuestionRepository) list(ctx context.Context, activeOnly bool) ([]models.Question, error) {
	query := `SELECT id, text, display_order, active FROM questions`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY display_order ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.DisplayOrder, &q.Active); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return questions, nil
}
