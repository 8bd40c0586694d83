package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/trackguess/internal/models"
)

// TokenSource supplies bearer tokens to [Client].
//
// RefreshStale is called with the token that was rejected and returns the token to resend with.
type TokenSource interface {
	GetAccessToken() (string, error)
	RefreshStale(ctx context.Context, stale string) (string, error)
}

// RequestBuilder creates a request carrying the given access token.
// It is invoked once per send so a refreshed token is picked up on resend.
type RequestBuilder func(ctx context.Context, token string) (*http.Request, error)

// Caller sends requests with retry and decodes JSON results.
type Caller interface {
	CallJSON(ctx context.Context, build RequestBuilder, out any) error
}

// TrackAPI looks tracks up in the catalog.
type TrackAPI interface {
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)
	Track(ctx context.Context, id string) (*models.Track, error)
}
