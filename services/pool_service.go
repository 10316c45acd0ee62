package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"mingle_server/models"

	"github.com/google/uuid"
)

const (
	// PoolEntryTTL bounds how long any pool entry can live in storage.
	PoolEntryTTL = 30 * time.Minute
	// SessionTTL is the hard expiry for sessions, independent of activity.
	SessionTTL = 4 * time.Hour
	// matchAttempts bounds how often one call re-runs the match search after
	// losing a claim race to a concurrent request.
	matchAttempts = 3
)

// PoolService owns the waiting pool and the matcher. It is the only component
// allowed to create sessions.
type PoolService struct {
	Store    GameStore
	Notifier Notifier
	Profiles ProfileResolver
}

// JoinResult is the response shape for a join call.
type JoinResult struct {
	Status    string `json:"status"` // "waiting" or "matched"
	SessionID string `json:"sessionId,omitempty"`
}

// PoolStatus is the response shape for group-mode status polling.
type PoolStatus struct {
	PlayersJoined   int    `json:"playersJoined"`
	RequiredPlayers int    `json:"requiredPlayers"`
	ReadyToStart    bool   `json:"readyToStart"`
	SessionID       string `json:"sessionId,omitempty"`
}

// PollResult is the response shape for 1-on-1 match polling.
type PollResult struct {
	Matched      bool              `json:"matched"`
	SessionID    string            `json:"sessionId,omitempty"`
	Participants []ParticipantInfo `json:"participants,omitempty"`
}

// Join places a participant into the waiting pool and immediately attempts a
// match. Idempotent: a participant who already has an entry for this mode gets
// that entry's current state back, never a duplicate.
func (ps *PoolService) Join(ctx context.Context, modeID, participantID, criteria string) (*JoinResult, error) {
	mode, ok := models.Modes[modeID]
	if !ok {
		return nil, ErrUnknownMode
	}

	groupSize := 0
	if mode.MatchBy == models.MatchByGroupSize {
		size, err := strconv.Atoi(criteria)
		if err != nil || !mode.AllowsGroupSize(size) {
			return nil, ErrInvalidGroupSize
		}
		groupSize = size
	}

	if existing, err := ps.Store.GetWaitingEntry(ctx, modeID, participantID); err == nil {
		return joinResultFor(existing), nil
	} else if !errors.Is(err, ErrItemNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	entry := models.WaitingEntry{
		PK:            models.PoolPK(modeID),
		SK:            models.PoolSK(participantID),
		ParticipantID: participantID,
		Mode:          modeID,
		Criteria:      criteria,
		GroupSize:     groupSize,
		MatchStatus:   models.MatchStatusWaiting,
		JoinedAt:      now,
		ExpiresAt:     now.Add(PoolEntryTTL).Unix(),
	}

	if err := ps.Store.PutWaitingEntry(ctx, entry); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			// Concurrent join from the same participant; the first write wins.
			existing, getErr := ps.Store.GetWaitingEntry(ctx, modeID, participantID)
			if getErr != nil {
				return nil, getErr
			}
			return joinResultFor(existing), nil
		}
		return nil, err
	}

	session, err := ps.tryMatch(ctx, mode, entry)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return &JoinResult{Status: models.MatchStatusMatched, SessionID: session.SessionID}, nil
	}
	return &JoinResult{Status: models.MatchStatusWaiting}, nil
}

// Status reports bucket fill progress for group modes. Polling it also drives
// the matcher, so a bucket left full by a lost race still converges.
func (ps *PoolService) Status(ctx context.Context, modeID, participantID string) (*PoolStatus, error) {
	mode, ok := models.Modes[modeID]
	if !ok {
		return nil, ErrUnknownMode
	}

	entry, err := ps.Store.GetWaitingEntry(ctx, modeID, participantID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrNotInQueue
		}
		return nil, err
	}

	required := entry.GroupSize
	if mode.MatchBy == models.MatchByCriteria {
		required = 2
	}

	if entry.MatchStatus == models.MatchStatusWaiting {
		session, err := ps.tryMatch(ctx, mode, *entry)
		if err != nil {
			return nil, err
		}
		if session == nil {
			joined, err := ps.countBucket(ctx, mode, entry)
			if err != nil {
				return nil, err
			}
			return &PoolStatus{PlayersJoined: joined, RequiredPlayers: required}, nil
		}
		entry.SessionID = session.SessionID
		entry.MatchStatus = models.MatchStatusMatched
	}

	session, err := ps.Store.GetSession(ctx, entry.SessionID)
	if err != nil {
		return nil, err
	}
	return &PoolStatus{
		PlayersJoined:   len(session.Participants),
		RequiredPlayers: required,
		ReadyToStart:    session.Status == models.SessionStatusInProgress,
		SessionID:       session.SessionID,
	}, nil
}

// Poll reports whether a 1-on-1 participant has been matched yet. Safe to call
// arbitrarily often; each call returns a consistent snapshot.
func (ps *PoolService) Poll(ctx context.Context, modeID, participantID string) (*PollResult, error) {
	mode, ok := models.Modes[modeID]
	if !ok {
		return nil, ErrUnknownMode
	}

	entry, err := ps.Store.GetWaitingEntry(ctx, modeID, participantID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrNotInQueue
		}
		return nil, err
	}

	if entry.MatchStatus == models.MatchStatusWaiting {
		session, err := ps.tryMatch(ctx, mode, *entry)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return &PollResult{Matched: false}, nil
		}
		entry.SessionID = session.SessionID
		entry.MatchStatus = models.MatchStatusMatched
	}

	session, err := ps.Store.GetSession(ctx, entry.SessionID)
	if err != nil {
		return nil, err
	}

	infos := make([]ParticipantInfo, 0, len(session.Participants))
	for _, p := range session.Participants {
		infos = append(infos, ps.Profiles.Resolve(ctx, p))
	}
	return &PollResult{Matched: true, SessionID: session.SessionID, Participants: infos}, nil
}

// Leave removes a waiting entry. A leave that races with a match is a no-op:
// once the entry is matched the caller is already in a session, and leaving
// the pool must never destroy it.
func (ps *PoolService) Leave(ctx context.Context, modeID, participantID string) error {
	if _, ok := models.Modes[modeID]; !ok {
		return ErrUnknownMode
	}

	if _, err := ps.Store.GetWaitingEntry(ctx, modeID, participantID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrNotInQueue
		}
		return err
	}

	err := ps.Store.DeleteWaitingEntryIfWaiting(ctx, modeID, participantID)
	if errors.Is(err, ErrConditionFailed) {
		return nil
	}
	return err
}

func joinResultFor(entry *models.WaitingEntry) *JoinResult {
	if entry.MatchStatus == models.MatchStatusMatched {
		return &JoinResult{Status: models.MatchStatusMatched, SessionID: entry.SessionID}
	}
	return &JoinResult{Status: models.MatchStatusWaiting}
}

// countBucket counts waiting members compatible with the caller's entry:
// same criteria label for 1-on-1 modes, same target size for group modes.
func (ps *PoolService) countBucket(ctx context.Context, mode models.GameMode, self *models.WaitingEntry) (int, error) {
	entries, err := ps.Store.ListWaitingEntries(ctx, mode.ID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if e.MatchStatus != models.MatchStatusWaiting {
			continue
		}
		if mode.MatchBy == models.MatchByCriteria {
			if e.Criteria == self.Criteria {
				count++
			}
		} else if e.GroupSize == self.GroupSize {
			count++
		}
	}
	return count, nil
}

// tryMatch runs the matcher for one participant. Returns the session the
// participant landed in, or nil if they are still waiting. A lost claim race
// is retried against fresh candidates and never surfaced to the caller.
func (ps *PoolService) tryMatch(ctx context.Context, mode models.GameMode, self models.WaitingEntry) (*models.GameSession, error) {
	for attempt := 0; attempt < matchAttempts; attempt++ {
		var (
			session *models.GameSession
			err     error
		)
		if mode.MatchBy == models.MatchByGroupSize {
			session, err = ps.matchGroup(ctx, mode, self)
		} else {
			session, err = ps.matchPair(ctx, mode, self)
		}
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrConditionFailed) {
			return nil, err
		}
		// Lost a claim race. The winner may have matched us into their
		// session; if so we are done, otherwise re-read the pool and retry.
		if selfWasClaimed(ctx, ps.Store, &self) {
			return ps.Store.GetSession(ctx, self.SessionID)
		}
	}
	return nil, nil
}

// matchPair searches for a compatible waiting candidate and claims both
// entries plus the new session atomically. Compatibility is symmetric by
// construction (equal criteria labels), so A accepting B implies B accepts A.
func (ps *PoolService) matchPair(ctx context.Context, mode models.GameMode, self models.WaitingEntry) (*models.GameSession, error) {
	entries, err := ps.Store.ListWaitingEntries(ctx, mode.ID)
	if err != nil {
		return nil, err
	}

	var candidates []models.WaitingEntry
	for _, e := range entries {
		if e.ParticipantID == self.ParticipantID {
			continue
		}
		if e.MatchStatus == models.MatchStatusWaiting && e.Criteria == self.Criteria {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].JoinedAt.Before(candidates[j].JoinedAt)
	})

	var lastErr error
	for _, candidate := range candidates {
		// Candidate joined first, so they come first in the participant list.
		// The chooser (chance holder) is picked uniformly at random.
		turnIndex := rand.Intn(2)
		candidate.IsPrimary = turnIndex == 0
		self.IsPrimary = turnIndex == 1

		session := ps.newSession(mode, []string{candidate.ParticipantID, self.ParticipantID}, turnIndex)
		err := ps.Store.CreateMatch(ctx, []models.WaitingEntry{candidate, self}, *session)
		if err == nil {
			ps.announce(session)
			return session, nil
		}
		if !errors.Is(err, ErrConditionFailed) {
			return nil, err
		}
		// Candidate was matched or left in the meantime; try the next one.
		lastErr = err
	}

	if lastErr != nil && selfWasClaimed(ctx, ps.Store, &self) {
		// Another request matched us while we were losing candidate races.
		return ps.Store.GetSession(ctx, self.SessionID)
	}
	return nil, nil
}

// matchGroup back-fills a shrunken waiting session if one exists, otherwise
// forms a fresh session once the bucket holds a full group.
func (ps *PoolService) matchGroup(ctx context.Context, mode models.GameMode, self models.WaitingEntry) (*models.GameSession, error) {
	if session, err := ps.backFill(ctx, mode, self); err != nil || session != nil {
		return session, err
	}

	entries, err := ps.Store.ListWaitingEntries(ctx, mode.ID)
	if err != nil {
		return nil, err
	}

	var bucket []models.WaitingEntry
	for _, e := range entries {
		if e.MatchStatus == models.MatchStatusWaiting && e.GroupSize == self.GroupSize {
			bucket = append(bucket, e)
		}
	}
	if len(bucket) < self.GroupSize {
		return nil, nil
	}
	sort.Slice(bucket, func(i, j int) bool {
		return bucket[i].JoinedAt.Before(bucket[j].JoinedAt)
	})

	members := bucket[:self.GroupSize]
	participants := make([]string, 0, len(members))
	selfIncluded := false
	for _, m := range members {
		participants = append(participants, m.ParticipantID)
		if m.ParticipantID == self.ParticipantID {
			selfIncluded = true
		}
	}

	turnIndex := rand.Intn(len(members))
	for i := range members {
		members[i].IsPrimary = i == turnIndex
	}

	session := ps.newSession(mode, participants, turnIndex)
	if err := ps.Store.CreateMatch(ctx, members, *session); err != nil {
		return nil, err
	}
	ps.announce(session)

	if !selfIncluded {
		// The bucket was overfull; the oldest members got this session and we
		// stay waiting for the next group.
		return nil, nil
	}
	return session, nil
}

// backFill places the joiner into a group session that shrank below its
// minimum and is waiting for replacements. Only sessions that formed at the
// joiner's requested group size are candidates.
func (ps *PoolService) backFill(ctx context.Context, mode models.GameMode, self models.WaitingEntry) (*models.GameSession, error) {
	waitingSessions, err := ps.Store.ListSessionsByStatus(ctx, mode.ID, models.SessionStatusWaiting)
	if err != nil {
		return nil, err
	}
	sort.Slice(waitingSessions, func(i, j int) bool {
		return waitingSessions[i].CreatedAt.Before(waitingSessions[j].CreatedAt)
	})

	for _, candidate := range waitingSessions {
		if candidate.TargetSize != self.GroupSize || candidate.HasParticipant(self.ParticipantID) {
			continue
		}

		if err := ps.Store.ClaimWaitingEntry(ctx, mode.ID, self.ParticipantID, candidate.SessionID, false); err != nil {
			if errors.Is(err, ErrConditionFailed) {
				// Our own entry was claimed by a concurrent request.
				return nil, ErrConditionFailed
			}
			return nil, err
		}

		session, err := ps.addToSession(ctx, candidate.SessionID, mode, self.ParticipantID)
		if err != nil {
			// The claim must not outlive a failed append, or the joiner polls
			// a session they never entered.
			if relErr := ps.releaseClaim(ctx, mode.ID, self); relErr != nil {
				return nil, relErr
			}
			return nil, err
		}
		if session == nil {
			// Session vanished or filled up under us; release our claim and
			// fall through to normal group formation.
			if relErr := ps.releaseClaim(ctx, mode.ID, self); relErr != nil {
				return nil, relErr
			}
			continue
		}
		ps.announce(session)
		return session, nil
	}
	return nil, nil
}

// releaseClaim restores the joiner's own entry to waiting after a back-fill
// claim that did not land in a session.
func (ps *PoolService) releaseClaim(ctx context.Context, modeID string, self models.WaitingEntry) error {
	if err := ps.Store.DeleteWaitingEntry(ctx, modeID, self.ParticipantID); err != nil {
		return err
	}
	if err := ps.Store.PutWaitingEntry(ctx, self); err != nil && !errors.Is(err, ErrConditionFailed) {
		return err
	}
	return nil
}

// addToSession appends a participant under the session version lock, resuming
// play if the group is back at its minimum size.
func (ps *PoolService) addToSession(ctx context.Context, sessionID string, mode models.GameMode, participantID string) (*models.GameSession, error) {
	for attempt := 0; attempt < matchAttempts; attempt++ {
		session, err := ps.Store.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return nil, nil
			}
			return nil, err
		}
		capacity := mode.MaxPlayers
		if session.TargetSize > 0 {
			capacity = session.TargetSize
		}
		if session.Status != models.SessionStatusWaiting || len(session.Participants) >= capacity {
			return nil, nil
		}

		session.Participants = append(session.Participants, participantID)
		if len(session.Participants) >= mode.MinPlayers {
			session.Status = models.SessionStatusInProgress
			session.Phase = models.PhaseAwaitingPrompt
		}
		session.Version++

		err = ps.Store.UpdateSession(ctx, *session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrConditionFailed) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to add %s to session %s after %d attempts", participantID, sessionID, matchAttempts)
}

func (ps *PoolService) newSession(mode models.GameMode, participants []string, turnIndex int) *models.GameSession {
	now := time.Now().UTC()
	return &models.GameSession{
		SessionID:    uuid.NewString(),
		Mode:         mode.ID,
		Participants: participants,
		TargetSize:   len(participants),
		Status:       models.SessionStatusInProgress,
		Phase:        models.PhaseAwaitingPrompt,
		TurnIndex:    turnIndex,
		RoundNumber:  1,
		Version:      1,
		CreatedAt:    now,
		ExpiresAt:    now.Add(SessionTTL).Unix(),
	}
}

func (ps *PoolService) announce(session *models.GameSession) {
	if ps.Notifier == nil {
		return
	}
	log.Printf("🎉 Match formed: session %s (%s) with %d players", session.SessionID, session.Mode, len(session.Participants))
	ps.Notifier.MatchFound(session.SessionID, session.Participants)
}

func selfWasClaimed(ctx context.Context, store GameStore, self *models.WaitingEntry) bool {
	entry, err := store.GetWaitingEntry(ctx, self.Mode, self.ParticipantID)
	if err != nil || entry.MatchStatus != models.MatchStatusMatched {
		return false
	}
	*self = *entry
	return true
}
