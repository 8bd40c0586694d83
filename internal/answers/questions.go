package answers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/trackguess/internal/models"
)

// DefaultQuestionTTL is how long fetched questions are reused.
const DefaultQuestionTTL = 5 * time.Minute

// QuestionSource lists active questions.
type QuestionSource interface {
	GetActiveQuestions(ctx context.Context) ([]models.Question, error)
}

// QuestionCache memoizes active questions for a TTL.
type QuestionCache struct {
	mu        sync.Mutex
	source    QuestionSource
	ttl       time.Duration
	now       func() time.Time
	questions []models.Question
	fetchedAt time.Time
}

// NewQuestionCache wraps source. A ttl of zero or less uses [DefaultQuestionTTL].
func NewQuestionCache(source QuestionSource, ttl time.Duration) *QuestionCache {
	if ttl <= 0 {
		ttl = DefaultQuestionTTL
	}
	return &QuestionCache{source: source, ttl: ttl, now: time.Now}
}

// Get returns active questions in display order, fetching when the cache is stale.
func (c *QuestionCache) Get(ctx context.Context) ([]models.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.questions != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return slices.Clone(c.questions), nil
	}

	qs, err := c.source.GetActiveQuestions(ctx)
	if err != nil {
		return nil, err
	}
	models.SortQuestions(qs)

	c.questions = qs
	c.fetchedAt = c.now()
	return slices.Clone(qs), nil
}

// Invalidate drops the cached questions.
func (c *QuestionCache) Invalidate() {
	c.mu.Lock()
	c.questions = nil
	c.mu.Unlock()
}
