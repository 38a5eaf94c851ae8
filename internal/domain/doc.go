// Package domain contains the core study entities: decks, cards, memory tiles
// and the session records produced when a learner finishes a study mode. It
// is independent of any storage, transport or audio mechanism.
package domain
