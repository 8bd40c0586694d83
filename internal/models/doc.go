// Package models defines the domain entities shared by the answer engine, the API client and the stores.
//
// # Entities
//
//   - [Track] : song metadata as returned by the third-party catalog, compared by ID
//   - [ReleaseDate] : partial-precision release date (year, month or day)
//   - [Question] : read-only prompt a player answers with one track
//   - [Slot] : a position in the player's answer list, moving through [SlotEmpty], [SlotPending] and [SlotFilled]
//   - [Answer] : the persisted (player, question, track) triple
//   - [Credential] : access token, refresh token and expiry
//
// Entities that are written to a store implement [Model].
package models
