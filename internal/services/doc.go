// Package services talks to the third-party music catalog.
//
// # Client
//
// Every request goes through [Client.Call], which paces sends with a token bucket and
// classifies each response by [Outcome]:
//
//   - [OutcomeOK] : 2xx, returned to the caller
//   - [OutcomeAuthExpired] : 401, the access token is refreshed once and the request resent once
//   - [OutcomeThrottled] : 429, retried with exponential backoff, then [shared.ErrRateLimited]
//   - [OutcomeTransient] : 5xx or network failure, retried with backoff, then [shared.ErrUnavailable]
//   - [OutcomeFatal] : any other 4xx or an undecodable payload, returned immediately as [shared.ErrAPIRequest]
//
// The delay before retry k (zero-based) is base*2^k. Waiting honors context cancellation.
//
// # Spotify
//
// [SpotifyService] builds catalog requests (search, track lookup, current user) and maps
// Web API payloads to [models.Track].
package services
