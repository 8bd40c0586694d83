// Spotify Web API catalog lookups
//
// Response payloads decode into the [spotify] package's types.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/trackguess/internal/models"
	"github.com/desertthunder/trackguess/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const (
	spotifyBaseURL     = "https://api.spotify.com/v1"
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// SpotifyUser is the subset of the current user's profile used as the player identity.
type SpotifyUser struct {
	ID          string
	DisplayName string
}

// SpotifyService implements [TrackAPI] against the Spotify Web API.
// All requests go through a [Caller], normally a rate-limited [Client].
type SpotifyService struct {
	caller  Caller
	baseURL string
	market  string
}

// NewSpotifyService creates a service sending requests through caller.
// An empty baseURL defaults to the public Web API.
func NewSpotifyService(caller Caller, baseURL string) *SpotifyService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	return &SpotifyService{caller: caller, baseURL: strings.TrimRight(baseURL, "/")}
}

// WithMarket restricts lookups to an ISO 3166-1 market ("from_token" uses the user's country).
func (s *SpotifyService) WithMarket(market string) *SpotifyService {
	s.market = market
	return s
}

func (s *SpotifyService) get(endpoint string, query url.Values) RequestBuilder {
	return func(ctx context.Context, token string) (*http.Request, error) {
		u := s.baseURL + endpoint
		if s.market != "" {
			if query == nil {
				query = url.Values{}
			}
			query.Set("market", s.market)
		}
		if len(query) > 0 {
			u += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}

// Search finds tracks matching query.
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {fmt.Sprint(limit)},
	}

	var result spotify.SearchResult
	if err := s.caller.CallJSON(ctx, s.get("/search", params), &result); err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	if result.Tracks == nil {
		return []models.Track{}, nil
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Tracks))
	for _, ft := range result.Tracks.Tracks {
		tracks = append(tracks, ConvertTrack(ft))
	}
	return tracks, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, id string) (*models.Track, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	var ft spotify.FullTrack
	if err := s.caller.CallJSON(ctx, s.get("/tracks/"+url.PathEscape(id), nil), &ft); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
		}
		return nil, fmt.Errorf("fetching track %s: %w", id, err)
	}
	if ft.ID == "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	track := ConvertTrack(ft)
	return &track, nil
}

// CurrentUser returns the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user spotify.PrivateUser
	if err := s.caller.CallJSON(ctx, s.get("/me", nil), &user); err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: profile without id", shared.ErrAPIRequest)
	}
	return &SpotifyUser{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// ConvertTrack maps a Web API track to a [models.Track].
func ConvertTrack(ft spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, a.Name)
	}

	t := models.Track{
		ID:          ft.ID.String(),
		Title:       ft.Name,
		Artists:     artists,
		AlbumName:   ft.Album.Name,
		ReleaseDate: ft.Album.ReleaseDate,
		ExternalURL: ft.ExternalURLs["spotify"],
		PreviewURL:  ft.PreviewURL,
	}
	if len(ft.Album.Images) > 0 {
		t.AlbumImageURL = ft.Album.Images[0].URL
	}
	return t
}

var _ TrackAPI = (*SpotifyService)(nil)
