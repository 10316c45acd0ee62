package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mingle_server/models"
)

// updateAttempts bounds optimistic-lock retries on one session transition.
const updateAttempts = 5

// SessionService is the session state machine: the single mutation entry point
// for turnIndex, status, phase and the current round. No other component
// writes those fields.
type SessionService struct {
	Store    GameStore
	Profiles ProfileResolver
}

// SessionView is the consistent snapshot returned to polling clients.
type SessionView struct {
	SessionID    string            `json:"sessionId"`
	Mode         string            `json:"mode"`
	Status       string            `json:"status"`
	Phase        string            `json:"phase,omitempty"`
	Participants []ParticipantInfo `json:"participants"`
	RoundNumber  int               `json:"roundNumber"`
	TurnHolder   string            `json:"turnHolder,omitempty"`
	YourTurn     bool              `json:"yourTurn"`
}

// RoundResult is the round payload. Before the reviewing phase it reports
// allAnswered=false and never leaks partial answers.
type RoundResult struct {
	AllAnswered bool              `json:"allAnswered"`
	RoundNumber int               `json:"roundNumber"`
	Prompt      string            `json:"prompt,omitempty"`
	PromptBy    string            `json:"promptBy,omitempty"`
	YouAnswered bool              `json:"youAnswered"`
	Answers     map[string]string `json:"answers,omitempty"`
	Feedback    map[string]string `json:"feedback,omitempty"`
}

// mutate runs one validated transition under the session's version lock.
// A lost write race reloads the session and revalidates from scratch, so a
// transition can never apply against stale state.
func (ss *SessionService) mutate(ctx context.Context, sessionID string, fn func(*models.GameSession, models.GameMode) error) (*models.GameSession, error) {
	for attempt := 0; attempt < updateAttempts; attempt++ {
		session, err := ss.Store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		mode, ok := models.Modes[session.Mode]
		if !ok {
			return nil, ErrUnknownMode
		}

		if err := fn(session, mode); err != nil {
			return nil, err
		}
		session.Version++

		err = ss.Store.UpdateSession(ctx, *session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrConditionFailed) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("session %s: update contention, giving up after %d attempts", sessionID, updateAttempts)
}

// View returns the session snapshot rendered for one participant.
func (ss *SessionService) View(ctx context.Context, sessionID, callerID string) (*SessionView, error) {
	session, err := ss.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(callerID) {
		return nil, ErrParticipantMismatch
	}

	infos := make([]ParticipantInfo, 0, len(session.Participants))
	for _, p := range session.Participants {
		infos = append(infos, ss.Profiles.Resolve(ctx, p))
	}

	view := &SessionView{
		SessionID:    session.SessionID,
		Mode:         session.Mode,
		Status:       session.Status,
		Phase:        session.Phase,
		Participants: infos,
		RoundNumber:  session.RoundNumber,
	}
	if session.Status == models.SessionStatusInProgress {
		view.TurnHolder = session.TurnHolder()
		view.YourTurn = session.TurnHolder() == callerID
	}
	return view, nil
}

// SubmitPrompt opens the round. Only the current turn holder may call it, and
// only while the round is awaiting a prompt.
func (ss *SessionService) SubmitPrompt(ctx context.Context, sessionID, authorID, text string) error {
	if text == "" {
		return ErrInvalidAnswer
	}

	_, err := ss.mutate(ctx, sessionID, func(session *models.GameSession, _ models.GameMode) error {
		if !session.HasParticipant(authorID) {
			return ErrParticipantMismatch
		}
		if session.Status != models.SessionStatusInProgress || session.Phase != models.PhaseAwaitingPrompt {
			return ErrWrongPhase
		}
		if session.TurnHolder() != authorID {
			return ErrNotYourTurn
		}

		session.CurrentRound = &models.Round{
			Prompt:    text,
			PromptBy:  authorID,
			Answers:   map[string]string{},
			Feedback:  map[string]string{},
			CreatedAt: time.Now().UTC(),
		}
		session.Phase = models.PhaseAwaitingAnswers
		return nil
	})
	return err
}

// SubmitAnswer records one participant's answer. The round closes when every
// current participant except the turn holder has answered; the threshold is
// computed against the live participant count, never one cached at round start.
func (ss *SessionService) SubmitAnswer(ctx context.Context, sessionID, responderID, value string) error {
	_, err := ss.mutate(ctx, sessionID, func(session *models.GameSession, mode models.GameMode) error {
		if !session.HasParticipant(responderID) {
			return ErrParticipantMismatch
		}
		if session.Status != models.SessionStatusInProgress || session.Phase != models.PhaseAwaitingAnswers || session.CurrentRound == nil {
			return ErrWrongPhase
		}
		if session.TurnHolder() == responderID {
			return ErrNotYourTurn
		}
		if _, answered := session.CurrentRound.Answers[responderID]; answered {
			return ErrAlreadyAnswered
		}
		if !mode.AllowsAnswer(value) {
			return ErrInvalidAnswer
		}

		session.CurrentRound.Answers[responderID] = value
		if len(session.CurrentRound.Answers) >= mode.ExpectedAnswers(len(session.Participants)) {
			session.Phase = models.PhaseReviewing
		}
		return nil
	})
	return err
}

// RoundResult returns the round payload for one participant.
func (ss *SessionService) RoundResult(ctx context.Context, sessionID, callerID string) (*RoundResult, error) {
	session, err := ss.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(callerID) {
		return nil, ErrParticipantMismatch
	}

	result := &RoundResult{RoundNumber: session.RoundNumber}
	round := session.CurrentRound
	if round == nil {
		return result, nil
	}

	result.Prompt = round.Prompt
	result.PromptBy = round.PromptBy
	_, result.YouAnswered = round.Answers[callerID]

	if session.Phase != models.PhaseReviewing {
		// Answers stay hidden until everyone has submitted.
		return result, nil
	}

	result.AllAnswered = true
	result.Answers = round.Answers
	result.Feedback = round.Feedback
	return result, nil
}

// RateFeedback lets the turn holder attach a like/dislike to one responder's
// answer during the reviewing phase. Feedback is optional; advancing the round
// does not require it.
func (ss *SessionService) RateFeedback(ctx context.Context, sessionID, callerID, responderID, value string) error {
	if value != models.FeedbackLike && value != models.FeedbackDislike {
		return ErrInvalidAnswer
	}

	_, err := ss.mutate(ctx, sessionID, func(session *models.GameSession, _ models.GameMode) error {
		if !session.HasParticipant(callerID) {
			return ErrParticipantMismatch
		}
		if session.Status != models.SessionStatusInProgress || session.Phase != models.PhaseReviewing || session.CurrentRound == nil {
			return ErrWrongPhase
		}
		if session.TurnHolder() != callerID {
			return ErrNotYourTurn
		}
		if _, answered := session.CurrentRound.Answers[responderID]; !answered {
			return ErrParticipantMismatch
		}

		session.CurrentRound.Feedback[responderID] = value
		return nil
	})
	return err
}

// AdvanceRound rotates the turn to the next participant and opens the next
// round, or completes the session once a fixed-round mode hits its limit.
func (ss *SessionService) AdvanceRound(ctx context.Context, sessionID, callerID string) (*SessionView, error) {
	session, err := ss.mutate(ctx, sessionID, func(session *models.GameSession, mode models.GameMode) error {
		if !session.HasParticipant(callerID) {
			return ErrParticipantMismatch
		}
		if session.Status != models.SessionStatusInProgress || session.Phase != models.PhaseReviewing {
			return ErrWrongPhase
		}

		session.CurrentRound = nil
		if mode.RoundLimit > 0 && session.RoundNumber >= mode.RoundLimit {
			session.Status = models.SessionStatusCompleted
			session.Phase = ""
			return nil
		}

		session.TurnIndex = (session.TurnIndex + 1) % len(session.Participants)
		session.RoundNumber++
		session.Phase = models.PhaseAwaitingPrompt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ss.View(ctx, session.SessionID, callerID)
}

// Leave removes a participant from a session. A group session that drops
// below its minimum reverts to waiting for replacements instead of dying;
// a 1-on-1 session cannot survive a departure and completes.
func (ss *SessionService) Leave(ctx context.Context, sessionID, participantID string) error {
	session, err := ss.mutate(ctx, sessionID, func(session *models.GameSession, mode models.GameMode) error {
		if !session.HasParticipant(participantID) {
			return ErrParticipantMismatch
		}
		if session.Status == models.SessionStatusCompleted {
			return nil
		}

		removed := -1
		remaining := make([]string, 0, len(session.Participants)-1)
		for i, p := range session.Participants {
			if p == participantID {
				removed = i
				continue
			}
			remaining = append(remaining, p)
		}
		wasTurnHolder := removed == session.TurnIndex
		session.Participants = remaining

		if session.CurrentRound != nil {
			delete(session.CurrentRound.Answers, participantID)
			delete(session.CurrentRound.Feedback, participantID)
		}

		if len(remaining) < mode.MinPlayers {
			if mode.MatchBy == models.MatchByCriteria || len(remaining) == 0 {
				session.Status = models.SessionStatusCompleted
				session.Phase = ""
				session.CurrentRound = nil
				session.TurnIndex = 0
				return nil
			}
			// Group shrink: keep the session alive and wait for replacements.
			session.Status = models.SessionStatusWaiting
			session.Phase = ""
			session.CurrentRound = nil
			session.TurnIndex = 0
			session.RoundNumber = 1
			return nil
		}

		// Keep turnIndex pointing at the same player where possible.
		if removed < session.TurnIndex {
			session.TurnIndex--
		}
		session.TurnIndex = session.TurnIndex % len(remaining)

		if wasTurnHolder {
			// The prompt author is gone; restart the round with the next holder.
			session.CurrentRound = nil
			session.Phase = models.PhaseAwaitingPrompt
			return nil
		}

		// The departure may have satisfied the answer threshold.
		if session.Phase == models.PhaseAwaitingAnswers && session.CurrentRound != nil &&
			len(session.CurrentRound.Answers) >= mode.ExpectedAnswers(len(remaining)) {
			session.Phase = models.PhaseReviewing
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Drop the leaver's matched pool entry so a later re-join starts clean.
	if delErr := ss.Store.DeleteWaitingEntry(ctx, session.Mode, participantID); delErr != nil {
		return delErr
	}
	return nil
}
