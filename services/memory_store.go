package services

import (
	"context"
	"sync"

	"mingle_server/models"
)

// MemoryGameStore is the local-development backend (STORAGE_BACKEND=memory).
// One mutex guards both tables, which gives it the same all-or-nothing
// conditional semantics the DynamoDB backend gets from condition expressions
// and transactions. The test suite runs against this implementation.
type MemoryGameStore struct {
	mu       sync.Mutex
	pool     map[string]models.WaitingEntry // key: PK + "|" + SK
	sessions map[string]models.GameSession
}

func NewMemoryGameStore() *MemoryGameStore {
	return &MemoryGameStore{
		pool:     make(map[string]models.WaitingEntry),
		sessions: make(map[string]models.GameSession),
	}
}

func memPoolKey(mode, participantID string) string {
	return models.PoolPK(mode) + "|" + models.PoolSK(participantID)
}

// cloneSession deep-copies a session so callers can never reach into stored
// state behind the version check's back.
func cloneSession(session models.GameSession) models.GameSession {
	copied := session
	copied.Participants = append([]string(nil), session.Participants...)
	if session.CurrentRound != nil {
		round := *session.CurrentRound
		round.Answers = make(map[string]string, len(session.CurrentRound.Answers))
		for k, v := range session.CurrentRound.Answers {
			round.Answers[k] = v
		}
		round.Feedback = make(map[string]string, len(session.CurrentRound.Feedback))
		for k, v := range session.CurrentRound.Feedback {
			round.Feedback[k] = v
		}
		copied.CurrentRound = &round
	}
	return copied
}

func (s *MemoryGameStore) GetWaitingEntry(_ context.Context, mode, participantID string) (*models.WaitingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pool[memPoolKey(mode, participantID)]
	if !ok {
		return nil, ErrItemNotFound
	}
	copied := entry
	return &copied, nil
}

func (s *MemoryGameStore) PutWaitingEntry(_ context.Context, entry models.WaitingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memPoolKey(entry.Mode, entry.ParticipantID)
	if _, exists := s.pool[key]; exists {
		return ErrConditionFailed
	}
	s.pool[key] = entry
	return nil
}

func (s *MemoryGameStore) ListWaitingEntries(_ context.Context, mode string) ([]models.WaitingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.WaitingEntry
	for _, entry := range s.pool {
		if entry.Mode == mode {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *MemoryGameStore) CreateMatch(_ context.Context, entries []models.WaitingEntry, session models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every condition before applying anything.
	if _, exists := s.sessions[session.SessionID]; exists {
		return ErrConditionFailed
	}
	for _, entry := range entries {
		stored, ok := s.pool[memPoolKey(entry.Mode, entry.ParticipantID)]
		if !ok || stored.MatchStatus != models.MatchStatusWaiting {
			return ErrConditionFailed
		}
	}

	for _, entry := range entries {
		key := memPoolKey(entry.Mode, entry.ParticipantID)
		stored := s.pool[key]
		stored.MatchStatus = models.MatchStatusMatched
		stored.SessionID = session.SessionID
		stored.IsPrimary = entry.IsPrimary
		s.pool[key] = stored
	}
	s.sessions[session.SessionID] = cloneSession(session)
	return nil
}

func (s *MemoryGameStore) ClaimWaitingEntry(_ context.Context, mode, participantID, sessionID string, isPrimary bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memPoolKey(mode, participantID)
	entry, ok := s.pool[key]
	if !ok || entry.MatchStatus != models.MatchStatusWaiting {
		return ErrConditionFailed
	}
	entry.MatchStatus = models.MatchStatusMatched
	entry.SessionID = sessionID
	entry.IsPrimary = isPrimary
	s.pool[key] = entry
	return nil
}

func (s *MemoryGameStore) DeleteWaitingEntryIfWaiting(_ context.Context, mode, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memPoolKey(mode, participantID)
	entry, ok := s.pool[key]
	if !ok || entry.MatchStatus != models.MatchStatusWaiting {
		return ErrConditionFailed
	}
	delete(s.pool, key)
	return nil
}

func (s *MemoryGameStore) DeleteWaitingEntry(_ context.Context, mode, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pool, memPoolKey(mode, participantID))
	return nil
}

func (s *MemoryGameStore) GetSession(_ context.Context, sessionID string) (*models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := cloneSession(session)
	return &copied, nil
}

func (s *MemoryGameStore) UpdateSession(_ context.Context, session models.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.SessionID]
	if !ok || stored.Version != session.Version-1 {
		return ErrConditionFailed
	}
	s.sessions[session.SessionID] = cloneSession(session)
	return nil
}

func (s *MemoryGameStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryGameStore) ListSessionsByStatus(_ context.Context, mode, status string) ([]models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []models.GameSession
	for _, session := range s.sessions {
		if session.Mode == mode && session.Status == status {
			sessions = append(sessions, cloneSession(session))
		}
	}
	return sessions, nil
}

func (s *MemoryGameStore) ScanWaitingPool(_ context.Context) ([]models.WaitingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.WaitingEntry
	for _, entry := range s.pool {
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *MemoryGameStore) ScanSessions(_ context.Context) ([]models.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessions []models.GameSession
	for _, session := range s.sessions {
		sessions = append(sessions, cloneSession(session))
	}
	return sessions, nil
}
