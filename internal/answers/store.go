package answers

import (
	"context"

	"github.com/desertthunder/trackguess/internal/models"
)

// Store is the remote answer store.
//
// SaveAnswer is an upsert keyed by (playerID, questionID).
type Store interface {
	GetActiveQuestions(ctx context.Context) ([]models.Question, error)
	GetPlayerAnswers(ctx context.Context, playerID string) ([]models.Answer, error)
	SaveAnswer(ctx context.Context, playerID, questionID string, track models.Track) error
	DeleteAnswer(ctx context.Context, playerID, questionID string) error
	IsReady(ctx context.Context, playerID string) (bool, error)
}

// TrackLookup resolves catalog track IDs.
type TrackLookup interface {
	Track(ctx context.Context, id string) (*models.Track, error)
}
