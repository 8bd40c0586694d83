package repositories

import (
	"context"
	"database/sql"

	"github.com/desertthunder/trackguess/internal/models"
)

// Store is the SQLite answer store used by the answer engine.
//
// IsReady compares the player's answers to active questions with minimum.
type Store struct {
	Questions *QuestionRepository
	Answers   *AnswerRepository
	minimum   int
}

// NewStore wraps a migrated database (see shared.OpenDatabase).
func NewStore(db *sql.DB, minimum int) *Store {
	return &Store{
		Questions: NewQuestionRepository(db),
		Answers:   NewAnswerRepository(db),
		minimum:   minimum,
	}
}

func (s *Store) GetActiveQuestions(ctx context.Context) ([]models.Question, error) {
	return s.Questions.Active(ctx)
}

func (s *Store) GetPlayerAnswers(ctx context.Context, playerID string) ([]models.Answer, error) {
	return s.Answers.ForPlayer(ctx, playerID)
}

func (s *Store) SaveAnswer(ctx context.Context, playerID, questionID string, track models.Track) error {
	return s.Answers.Upsert(ctx, playerID, questionID, track)
}

func (s *Store) DeleteAnswer(ctx context.Context, playerID, questionID string) error {
	return s.Answers.Delete(ctx, playerID, questionID)
}

// ListQuestions lists every question, active or not.
func (s *Store) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return s.Questions.List(ctx)
}

// CreateQuestion inserts a question, generating its ID and display order when unset.
func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	return s.Questions.Create(ctx, q)
}

func (s *Store) IsReady(ctx context.Context, playerID string) (bool, error) {
	n, err := s.Answers.CountActive(ctx, playerID)
	if err != nil {
		return false, err
	}
	return n >= s.minimum, nil
}
