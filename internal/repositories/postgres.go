package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSchema creates the question and answer tables. It is safe to run repeatedly.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS questions (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	display_order INTEGER NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_questions_active_order ON questions(active, display_order);

CREATE TABLE IF NOT EXISTS answers (
	id TEXT PRIMARY KEY,
	player_id TEXT NOT NULL,
	question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	track_id TEXT NOT NULL,
	track_title TEXT NOT NULL,
	artists TEXT[] NOT NULL DEFAULT '{}',
	album_name TEXT NOT NULL DEFAULT '',
	album_image_url TEXT NOT NULL DEFAULT '',
	release_date TEXT NOT NULL DEFAULT '',
	external_url TEXT NOT NULL DEFAULT '',
	preview_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (player_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_answers_player ON answers(player_id);
`

// postgresSeed mirrors the SQLite seed migration.
const postgresSeed = `
INSERT INTO questions (id, text, display_order) VALUES
    ('q-anthem', 'The song that defined your year', 1),
    ('q-repeat', 'A track you had on repeat for a week', 2),
    ('q-discovery', 'Your best new discovery', 3),
    ('q-live', 'A song you would travel to hear live', 4),
    ('q-guilty', 'Your guilty pleasure', 5),
    ('q-morning', 'The soundtrack to your mornings', 6),
    ('q-dance', 'A song that gets you dancing', 7),
    ('q-cry', 'A song that made you cry', 8)
ON CONFLICT (id) DO NOTHING;
`

// PostgresStore is the answer store backed by a PostgreSQL connection pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	minimum int
}

// NewPostgresStore connects to databaseURL and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string, maxConns int, minimum int) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool, minimum: minimum}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// EnsureSchema applies [PostgresSchema] and seeds the default questions.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, postgresSeed); err != nil {
		return fmt.Errorf("seeding questions: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActiveQuestions(ctx context.Context) ([]models.Question, error) {
	return s.questions(ctx, true)
}

// ListQuestions lists every question, active or not.
func (s *PostgresStore) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return s.questions(ctx, false)
}

// CreateQuestion inserts a question, generating its ID and display order when unset.
func (s *PostgresStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = shared.GenerateID()
	}
	q.Text = strings.TrimSpace(q.Text)
	if err := q.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO questions (id, text, display_order, active)
		VALUES ($1, $2, CASE WHEN $3 > 0 THEN $3 ELSE (SELECT COALESCE(MAX(display_order), 0) + 1 FROM questions) END, $4)
		RETURNING display_order
	`
	if err := s.pool.QueryRow(ctx, query, q.ID, q.Text, q.DisplayOrder, q.Active).Scan(&q.DisplayOrder); err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlayerAnswers(ctx context.Context, playerID string) ([]models.Answer, error) {
	query := `
		SELECT a.id, a.player_id, a.question_id, a.track_id, a.track_title, a.artists, a.album_name,
			a.album_image_url, a.release_date, a.external_url, a.preview_url, a.updated_at
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE a.player_id = $1
		ORDER BY q.display_order ASC, q.id ASC
	`

	rows, err := s.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("querying answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(
			&a.ID,
			&a.PlayerID,
			&a.QuestionID,
			&a.Track.ID,
			&a.Track.Title,
			&a.Track.Artists,
			&a.Track.AlbumName,
			&a.Track.AlbumImageURL,
			&a.Track.ReleaseDate,
			&a.Track.ExternalURL,
			&a.Track.PreviewURL,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating answers: %w", err)
	}
	return answers, nil
}

func (s *PostgresStore) SaveAnswer(ctx context.Context, playerID, questionID string, track models.Track) error {
	answer := models.Answer{ID: shared.GenerateID(), PlayerID: playerID, QuestionID: questionID, Track: track}
	if err := answer.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists := track.Artists
	if artists == nil {
		artists = []string{}
	}

	query := `
		INSERT INTO answers (id, player_id, question_id, track_id, track_title, artists, album_name,
			album_image_url, release_date, external_url, preview_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (player_id, question_id) DO UPDATE SET
			track_id = EXCLUDED.track_id,
			track_title = EXCLUDED.track_title,
			artists = EXCLUDED.artists,
			album_name = EXCLUDED.album_name,
			album_image_url = EXCLUDED.album_image_url,
			release_date = EXCLUDED.release_date,
			external_url = EXCLUDED.external_url,
			preview_url = EXCLUDED.preview_url,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query,
		answer.ID,
		playerID,
		questionID,
		track.ID,
		track.Title,
		artists,
		track.AlbumName,
		track.AlbumImageURL,
		track.ReleaseDate,
		track.ExternalURL,
		track.PreviewURL,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting answer: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAnswer(ctx context.Context, playerID, questionID string) error {
	query := `DELETE FROM answers WHERE player_id = $1 AND question_id = $2`
	if _, err := s.pool.Exec(ctx, query, playerID, questionID); err != nil {
		return fmt.Errorf("deleting answer: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsReady(ctx context.Context, playerID string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE a.player_id = $1 AND q.active
	`

	var count int
	err := s.pool.QueryRow(ctx, query, playerID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("counting answers: %w", err)
	}
	return count >= s.minimum, nil
}

func (s *PostgresStore) questions(ctx context.Context, activeOnly bool) ([]models.Question, error) {
	query := `SELECT id, text, display_order, active FROM questions`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY display_order ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	questions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Question, error) {
		var q models.Question
		err := row.Scan(&q.ID, &q.Text, &q.DisplayOrder, &q.Active)
		return q, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning questions: %w", err)
	}
	return questions, nil
}
