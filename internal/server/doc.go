// Package server hosts the HTTP side of authentication.
//
// # Token Exchange Endpoint
//
// [TokenHandler] serves POST /api/token. It is the only component that holds the Spotify client secret:
// players send an authorization code or a refresh token and receive tokens back. The refresh token is
// echoed back only when Spotify rotated it.
//
// # OAuth Callback Handler
//
// [OAuthHandler] receives the authorization redirect during `trackguess auth login`. It checks the state
// parameter against the pending session, then hands the code to the waiting command through a channel.
// It never exchanges the code itself and only processes one callback.
//
// # Router Infrastructure
//
// [BasicRouter] registers [Handler] implementations on a chi mux. [Middleware] wraps handlers in reverse
// order (last added executes first). [DefaultMiddleware] returns the request ID, real IP, request logging
// and panic recovery stack used by `trackguess serve`.
package server
