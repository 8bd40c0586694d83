package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Model defines the base interface for persisted entities.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Track is a song from the third-party catalog. Two tracks are the same track when their IDs match.
type Track struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Artists       []string `json:"artists"`
	AlbumName     string   `json:"albumName"`
	AlbumImageURL string   `json:"albumImageUrl,omitempty"`
	ReleaseDate   string   `json:"releaseDate"`
	ExternalURL   string   `json:"externalUrl"`
	PreviewURL    string   `json:"previewUrl,omitempty"`
}

// Equal reports whether t and o identify the same catalog track.
func (t Track) Equal(o Track) bool {
	return t.ID == o.ID
}

// ArtistLine joins artist names for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

func (t Track) String() string {
	if len(t.Artists) == 0 {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.ArtistLine(), t.Title)
}

// Validate checks the fields an answer needs.
func (t Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("track id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("track title is required")
	}
	return nil
}

// Question is a prompt the player answers with one track. Questions are read-only to players.
type Question struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	DisplayOrder int    `json:"displayOrder"`
	Active       bool   `json:"active"`
}

// Validate checks that the question can be stored.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question id is required")
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required")
	}
	return nil
}

// SortQuestions orders questions by display order, then ID.
func SortQuestions(qs []Question) {
	slices.SortStableFunc(qs, func(a, b Question) int {
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder - b.DisplayOrder
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Answer is the persisted association of a player, a question and a track.
// There is at most one Answer per (PlayerID, QuestionID).
type Answer struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	QuestionID string    `json:"questionId"`
	Track      Track     `json:"track"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Validate checks that the answer can be stored.
func (a Answer) Validate() error {
	if a.PlayerID == "" {
		return fmt.Errorf("player id is required")
	}
	if a.QuestionID == "" {
		return fmt.Errorf("question id is required")
	}
	return a.Track.Validate()
}

// SlotState is the lifecycle state of a [Slot].
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotPending
	SlotFilled
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotPending:
		return "pending"
	case SlotFilled:
		return "filled"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// Slot is a snapshot of one position in a player's answer list.
//
// A slot with a Track always has a QuestionID. Err holds the last error surfaced for
// this slot and is cleared by the next successful operation.
type Slot struct {
	Index      int       `json:"index"`
	QuestionID string    `json:"questionId,omitempty"`
	Track      *Track    `json:"track,omitempty"`
	State      SlotState `json:"state"`
	Permanent  bool      `json:"permanent"`
	Err        string    `json:"error,omitempty"`
}

// Filled reports whether the slot holds a track.
func (s Slot) Filled() bool {
	return s.Track != nil
}

// Credential is the pair of tokens and the access token's expiry.
//
// ExpiresAt is informational. Expiry is detected from API responses, not from the clock.
type Credential struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// ExpiresAtEpochMs returns the expiry as milliseconds since the Unix epoch, or 0 when unknown.
func (c Credential) ExpiresAtEpochMs() int64 {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	return c.ExpiresAt.UnixMilli()
}
