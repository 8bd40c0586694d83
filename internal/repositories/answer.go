package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
)

// AnswerRepository persists one answer per (player, question).
type AnswerRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewAnswerRepository creates a new [AnswerRepository] with the given database connection
func NewAnswerRepository(db *sql.DB) *AnswerRepository {
	return &AnswerRepository{db: db, now: time.Now}
}

// ForPlayer lists the player's answers in question display order
func (r *AnswerRepository) ForPlayer(ctx context.Context, playerID string) ([]models.Answer, error) {
	query := `
		SELECT a.id, a.player_id, a.question_id, a.track_id, a.track_title, a.artists, a.album_name,
			a.album_image_url, a.release_date, a.external_url, a.preview_url, a.updated_at
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE a.player_id = ?
		ORDER BY q.display_order ASC, q.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return answers, nil
}

// Upsert stores track as the player's answer to the question, replacing any previous answer
func (r *AnswerRepository) Upsert(ctx context.Context, playerID, questionID string, track models.Track) error {
	answer := models.Answer{ID: shared.GenerateID(), PlayerID: playerID, QuestionID: questionID, Track: track}
	if err := answer.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists, err := encodeArtists(track.Artists)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO answers (id, player_id, question_id, track_id, track_title, artists, album_name,
			album_image_url, release_date, external_url, preview_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id, question_id) DO UPDATE SET
			track_id = excluded.track_id,
			track_title = excluded.track_title,
			artists = excluded.artists,
			album_name = excluded.album_name,
			album_image_url = excluded.album_image_url,
			release_date = excluded.release_date,
			external_url = excluded.external_url,
			preview_url = excluded.preview_url,
			updated_at = excluded.updated_at
	`

	now := r.now().UTC()
	_, err = r.db.ExecContext(ctx, query,
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
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}
	return nil
}

// Delete removes the player's answer to the question. Deleting a missing answer is not an error.
func (r *AnswerRepository) Delete(ctx context.Context, playerID, questionID string) error {
	query := `DELETE FROM answers WHERE player_id = ? AND question_id = ?`
	if _, err := r.db.ExecContext(ctx, query, playerID, questionID); err != nil {
		return fmt.Errorf("failed to delete answer: %w", err)
	}
	return nil
}

// CountActive counts the player's answers to active questions
func (r *AnswerRepository) CountActive(ctx context.Context, playerID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE a.player_id = ? AND q.active = 1
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, playerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return count, nil
}

// scanRow scans a row from [sql.Rows] into a [models.Answer]
func (r *AnswerRepository) scanRow(rows *sql.Rows) (models.Answer, error) {
	var (
		a       models.Answer
		artists string
	)

	err := rows.Scan(
		&a.ID,
		&a.PlayerID,
		&a.QuestionID,
		&a.Track.ID,
		&a.Track.Title,
		&artists,
		&a.Track.AlbumName,
		&a.Track.AlbumImageURL,
		&a.Track.ReleaseDate,
		&a.Track.ExternalURL,
		&a.Track.PreviewURL,
		&a.UpdatedAt,
	)
	if err != nil {
		return models.Answer{}, fmt.Errorf("failed to scan answer: %w", err)
	}

	if a.Track.Artists, err = decodeArtists(artists); err != nil {
		return models.Answer{}, err
	}
	return a, nil
}

func encodeArtists(artists []string) (string, error) {
	if artists == nil {
		artists = []string{}
	}
	b, err := json.Marshal(artists)
	if err != nil {
		return "", fmt.Errorf("failed to encode artists: %w", err)
	}
	return string(b), nil
}

func decodeArtists(s string) ([]string, error) {
	var artists []string
	if s == "" {
		return artists, nil
	}
	if err := json.Unmarshal([]byte(s), &artists); err != nil {
		return nil, fmt.Errorf("failed to decode artists: %w", err)
	}
	return artists, nil
}
