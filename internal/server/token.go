package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trackguess/internal/auth"
	"golang.org/x/oauth2"
)

const maxTokenRequestBytes = 16 << 10

// TokenHandler exchanges authorization codes and refresh tokens with the provider.
type TokenHandler struct {
	config     *oauth2.Config
	logger     *log.Logger
	httpClient *http.Client
}

// NewTokenHandler creates a handler for the given provider config, which carries the client secret.
// A nil client uses [http.DefaultClient] for provider calls.
func NewTokenHandler(config *oauth2.Config, client *http.Client, logger *log.Logger) *TokenHandler {
	return &TokenHandler{config: config, httpClient: client, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *TokenHandler) Routes() []string {
	return []string{"/api/token"}
}

// ServeHTTP decodes an [auth.ExchangeRequest] and answers with an [auth.TokenResponse].
//
// Malformed requests get 400 and provider failures get 502.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auth.ExchangeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTokenRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx := r.Context()
	if h.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, h.httpClient)
	}

	var (
		resp *auth.TokenResponse
		err  error
	)
	switch {
	case req.Code != "" && req.RefreshToken != "":
		writeError(w, http.StatusBadRequest, "send either code or refreshToken, not both")
		return
	case req.Code != "":
		if req.RedirectURI != "" && h.config.RedirectURL != "" && req.RedirectURI != h.config.RedirectURL {
			writeError(w, http.StatusBadRequest, "redirectUri does not match the registered redirect")
			return
		}
		resp, err = h.exchange(ctx, req.Code)
	case req.RefreshToken != "":
		resp, err = h.refresh(ctx, req.RefreshToken)
	default:
		writeError(w, http.StatusBadRequest, "code or refreshToken is required")
		return
	}

	if err != nil {
		h.logger.Warn("token exchange failed", "err", err)
		writeError(w, http.StatusBadGateway, upstreamMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *TokenHandler) exchange(ctx context.Context, code string) (*auth.TokenResponse, error) {
	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	return tokenResponse(token, ""), nil
}

func (h *TokenHandler) refresh(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
	src := h.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return tokenResponse(token, refreshToken), nil
}

// tokenResponse converts token, omitting the refresh token when it equals previous.
func tokenResponse(token *oauth2.Token, previous string) *auth.TokenResponse {
	resp := &auth.TokenResponse{AccessToken: token.AccessToken, TokenType: token.TokenType}
	if token.RefreshToken != previous {
		resp.RefreshToken = token.RefreshToken
	}

	switch {
	case token.ExpiresIn > 0:
		resp.ExpiresIn = int(token.ExpiresIn)
	case !token.Expiry.IsZero():
		resp.ExpiresIn = int(time.Until(token.Expiry).Round(time.Second).Seconds())
	}

	if scope, ok := token.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp
}

func upstreamMessage(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		return strings.TrimSpace("provider rejected the request: " + re.ErrorCode + " " + re.ErrorDescription)
	}
	return "provider request failed"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, auth.ErrorResponse{Error: message})
}
