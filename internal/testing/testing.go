// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/trackguess/internal/models"
)

// AnswerStore is an in-memory remote answer store with failure hooks.
type AnswerStore struct {
	mu        sync.Mutex
	questions []models.Question
	answers   map[string]map[string]models.Answer
	minimum   int
	calls     []string

	// SaveHook runs before every save. A non-nil error fails the save.
	SaveHook func(playerID, questionID string, track models.Track) error
	// DeleteHook runs before every delete. A non-nil error fails the delete.
	DeleteHook func(playerID, questionID string) error
	// QuestionsErr fails GetActiveQuestions when set.
	QuestionsErr error
}

// NewAnswerStore creates a store serving questions with the given readiness minimum.
func NewAnswerStore(minimum int, questions ...models.Question) *AnswerStore {
	return &AnswerStore{
		questions: questions,
		answers:   make(map[string]map[string]models.Answer),
		minimum:   minimum,
	}
}

// Questions builds n active questions q1..qn in display order.
func Questions(n int) []models.Question {
	qs := make([]models.Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, models.Question{
			ID:           "q" + strconv.Itoa(i),
			Text:         "Question " + strconv.Itoa(i),
			DisplayOrder: i,
			Active:       true,
		})
	}
	return qs
}

func (s *AnswerStore) GetActiveQuestions(ctx context.Context) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "questions")
	if s.QuestionsErr != nil {
		return nil, s.QuestionsErr
	}
	out := make([]models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if q.Active {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *AnswerStore) GetPlayerAnswers(ctx context.Context, playerID string) ([]models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Answer, 0, len(s.answers[playerID]))
	for _, a := range s.answers[playerID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (s *AnswerStore) SaveAnswer(ctx context.Context, playerID, questionID string, track models.Track) error {
	if s.SaveHook != nil {
		if err := s.SaveHook(playerID, questionID, track); err != nil {
			s.record("save:" + questionID + ":fail")
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "save:"+questionID)
	if s.answers[playerID] == nil {
		s.answers[playerID] = make(map[string]models.Answer)
	}
	s.answers[playerID][questionID] = models.Answer{
		ID:         playerID + ":" + questionID,
		PlayerID:   playerID,
		QuestionID: questionID,
		Track:      track,
		UpdatedAt:  time.Now(),
	}
	return nil
}

func (s *AnswerStore) DeleteAnswer(ctx context.Context, playerID, questionID string) error {
	if s.DeleteHook != nil {
		if err := s.DeleteHook(playerID, questionID); err != nil {
			s.record("delete:" + questionID + ":fail")
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "delete:"+questionID)
	delete(s.answers[playerID], questionID)
	return nil
}

func (s *AnswerStore) IsReady(ctx context.Context, playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers[playerID]) >= s.minimum, nil
}

func (s *AnswerStore) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

// Answer returns the stored answer for (player, question).
func (s *AnswerStore) Answer(playerID, questionID string) (models.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[playerID][questionID]
	return a, ok
}

// Count returns the number of answers stored for the player.
func (s *AnswerStore) Count(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers[playerID])
}

// Calls returns the recorded write calls in order.
func (s *AnswerStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
