// Package credentials stores the player's tokens.
//
// Credentials live in two tiers:
//
//   - a session tier for the short-lived access token and its expiry, cleared when the session (tab, process) ends
//   - a persistent tier for the refresh token, the pending OAuth session identifier and the player id
//
// Both tiers implement [Store]. [MemoryStore] backs the session tier and [FileStore]
// persists the other tier as a 0600 JSON file. [Vault] routes each key to its tier.
package credentials
