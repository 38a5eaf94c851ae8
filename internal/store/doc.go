// Package store defines the persistence interfaces for decks and session
// history, independent of the database behind them.
package store
