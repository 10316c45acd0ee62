package services

import "errors"

// Domain failure taxonomy. All of these are local validation failures reported
// straight back to the caller; none are fatal to the server process.
var (
	ErrUnknownMode         = errors.New("unknown game mode")
	ErrInvalidGroupSize    = errors.New("unsupported group size for this mode")
	ErrNotInQueue          = errors.New("participant has no waiting entry")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNotYourTurn         = errors.New("caller is not the current turn holder")
	ErrWrongPhase          = errors.New("operation not valid in current round phase")
	ErrAlreadyAnswered     = errors.New("participant already answered this round")
	ErrInvalidAnswer       = errors.New("answer value not allowed in this mode")
	ErrParticipantMismatch = errors.New("caller is not a participant of this session")
)

// Storage-level sentinels. ErrConditionFailed marks a lost atomic-update race;
// services retry or move to another candidate, it is never surfaced to users.
var (
	ErrItemNotFound    = errors.New("item not found")
	ErrConditionFailed = errors.New("conditional update failed")
)
