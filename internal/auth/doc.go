// Package auth manages the player's access credentials.
//
// # Lifecycle
//
// [Manager] keeps a short-lived access token in the session tier and a long-lived refresh
// token in the persistent tier of a credential store. Expiry is detected reactively: the
// API client calls [Manager.RefreshStale] after a 401 and resends once.
//
// The client secret never reaches this package. Authorization codes and refresh tokens are
// exchanged through an [Exchanger], normally [HTTPExchanger] talking to the token
// exchange endpoint served by `trackguess serve`.
package auth
