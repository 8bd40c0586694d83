package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/trackguess/internal/shared"
)

// ExchangeRequest is the body POSTed to the token exchange endpoint.
// Either Code (with RedirectURI) or RefreshToken is set.
type ExchangeRequest struct {
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirectUri,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenResponse is returned by the exchange endpoint.
//
// RefreshToken is only present when a new refresh token was issued.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn"`
	TokenType    string `json:"tokenType,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// ErrorResponse is the exchange endpoint's error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Exchanger trades an authorization code or a refresh token for tokens.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// HTTPExchanger calls a token exchange endpoint over HTTP.
type HTTPExchanger struct {
	url        string
	httpClient *http.Client
}

// NewHTTPExchanger creates an [HTTPExchanger] for the endpoint at url.
// A nil client defaults to one with a 15 second timeout.
func NewHTTPExchanger(url string, client *http.Client) *HTTPExchanger {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPExchanger{url: url, httpClient: client}
}

func (e *HTTPExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}
	return e.post(ctx, ExchangeRequest{Code: code, RedirectURI: redirectURI})
}

func (e *HTTPExchanger) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token", shared.ErrMissingArgument)
	}
	return e.post(ctx, ExchangeRequest{RefreshToken: refreshToken})
}

func (e *HTTPExchanger) post(ctx context.Context, body ExchangeRequest) (*TokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var er ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			return nil, fmt.Errorf("exchange endpoint returned %d: %s", resp.StatusCode, er.Error)
		}
		return nil, fmt.Errorf("exchange endpoint returned %d", resp.StatusCode)
	}

	var tr TokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode exchange response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("exchange response missing access token")
	}
	return &tr, nil
}

var _ Exchanger = (*HTTPExchanger)(nil)
