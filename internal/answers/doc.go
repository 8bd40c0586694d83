// Package answers keeps a player's answer slots in sync with the remote answer store.
//
// # Slots
//
// A player holds an ordered list of slots. The first N slots (the readiness minimum) are
// permanent; extra slots can be added and removed. Each slot moves through
//
//	Empty ──select──▶ Pending ──saved──▶ Filled
//	  ▲                  │
//	  └────rollback──────┘
//
// Every mutation is applied optimistically, persisted, then reconciled: a failed write
// restores the slot to the last state the store is known to hold and attaches the error
// to the slot. Operations on the same slot are serialized, so the last one issued wins.
//
// # Questions
//
// A question can be assigned to at most one slot. Active questions are read through a
// [QuestionCache] that refetches after its TTL.
//
// # Readiness
//
// [Readiness] is a pure function of the slots and the minimum. The [Engine] publishes an
// [Event] carrying the recomputed status after every mutation.
package answers
