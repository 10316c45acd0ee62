package services

import (
	"context"

	"mingle_server/models"
)

// GameStore is the storage seam for the pool and session engine. Every method
// that mutates state promises atomic conditional-update semantics: concurrent
// callers race on the store, not on in-process memory, so check-and-set in one
// step is the only correctness tool available.
//
// Two implementations exist: DynamoGameStore for real deployments and
// MemoryGameStore for local development and the test suite.
type GameStore interface {
	// GetWaitingEntry fetches a participant's entry for a mode, ErrItemNotFound if absent.
	GetWaitingEntry(ctx context.Context, mode, participantID string) (*models.WaitingEntry, error)

	// PutWaitingEntry inserts an entry; ErrConditionFailed if the participant
	// already has one for this mode (idempotent join relies on this).
	PutWaitingEntry(ctx context.Context, entry models.WaitingEntry) error

	// ListWaitingEntries returns all entries in a mode's bucket.
	ListWaitingEntries(ctx context.Context, mode string) ([]models.WaitingEntry, error)

	// CreateMatch claims every listed entry (condition: still waiting) and
	// creates the session, all-or-nothing. ErrConditionFailed if any member was
	// concurrently matched or left; in that case nothing is applied.
	CreateMatch(ctx context.Context, entries []models.WaitingEntry, session models.GameSession) error

	// ClaimWaitingEntry marks a single entry matched (condition: still waiting)
	// and points it at a session. Used when a joiner back-fills a shrunken
	// session instead of forming a fresh one. ErrConditionFailed on a lost race.
	ClaimWaitingEntry(ctx context.Context, mode, participantID, sessionID string, isPrimary bool) error

	// DeleteWaitingEntryIfWaiting removes an entry only while it is still
	// waiting; ErrConditionFailed if it was matched in the meantime.
	DeleteWaitingEntryIfWaiting(ctx context.Context, mode, participantID string) error

	// DeleteWaitingEntry removes an entry unconditionally (post-match cleanup, reaper).
	DeleteWaitingEntry(ctx context.Context, mode, participantID string) error

	// GetSession fetches a session, ErrSessionNotFound if absent.
	GetSession(ctx context.Context, sessionID string) (*models.GameSession, error)

	// UpdateSession writes a mutated session copy whose Version has already
	// been incremented; the write is conditional on the stored version still
	// being Version-1. ErrConditionFailed on a lost race.
	UpdateSession(ctx context.Context, session models.GameSession) error

	// DeleteSession removes a session unconditionally.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessionsByStatus returns a mode's sessions in a given status
	// (back-fill looks for status=waiting shrunken group sessions).
	ListSessionsByStatus(ctx context.Context, mode, status string) ([]models.GameSession, error)

	// ScanWaitingPool returns every pool entry across modes (reaper only).
	ScanWaitingPool(ctx context.Context) ([]models.WaitingEntry, error)

	// ScanSessions returns every stored session (reaper only).
	ScanSessions(ctx context.Context) ([]models.GameSession, error)
}
