// Package repositories persists questions and answers.
//
// Key Implementations:
//   - [QuestionRepository] : active questions in display order
//   - [AnswerRepository] : one answer per (player, question), written as an upsert
//   - [Store] : SQLite-backed answers.Store combining both repositories
//   - [PostgresStore] : the same contract over a pgx connection pool
//
// Track metadata is stored with each answer so a player's answers render without a catalog lookup.
package repositories
