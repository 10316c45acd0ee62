package models

import "time"

// Round is one prompt/answers/feedback cycle within a session
type Round struct {
	Prompt    string            `dynamodbav:"prompt" json:"prompt"`
	PromptBy  string            `dynamodbav:"promptBy" json:"promptBy"`
	Answers   map[string]string `dynamodbav:"answers" json:"answers"`   // participantId -> answer value
	Feedback  map[string]string `dynamodbav:"feedback" json:"feedback"` // participantId -> "like"/"dislike"
	CreatedAt time.Time         `dynamodbav:"createdAt" json:"createdAt"`
}

// GameSession is one active (or recently completed) game instance in DynamoDB
type GameSession struct {
	SessionID    string    `dynamodbav:"sessionId" json:"sessionId"`
	Mode         string    `dynamodbav:"mode" json:"mode"`
	Participants []string  `dynamodbav:"participants" json:"participants"` // Ordered, no duplicates
	TargetSize   int       `dynamodbav:"targetSize" json:"targetSize"`     // Size the session formed at
	Status       string    `dynamodbav:"status" json:"status"`             // waiting -> in_progress -> completed
	Phase        string    `dynamodbav:"phase,omitempty" json:"phase,omitempty"`
	TurnIndex    int       `dynamodbav:"turnIndex" json:"turnIndex"` // Index into Participants, the chance holder
	RoundNumber  int       `dynamodbav:"roundNumber" json:"roundNumber"`
	CurrentRound *Round    `dynamodbav:"currentRound,omitempty" json:"currentRound,omitempty"`
	Version      int64     `dynamodbav:"version" json:"version"` // Optimistic lock counter, bumped on every mutation
	CreatedAt    time.Time `dynamodbav:"createdAt" json:"createdAt"`
	ExpiresAt    int64     `dynamodbav:"expiresAt" json:"expiresAt"` // Epoch seconds, DynamoDB TTL attribute
}

// TurnHolder returns the participant currently responsible for the prompt.
func (s *GameSession) TurnHolder() string {
	if len(s.Participants) == 0 || s.TurnIndex < 0 || s.TurnIndex >= len(s.Participants) {
		return ""
	}
	return s.Participants[s.TurnIndex]
}

// HasParticipant reports whether a participant belongs to this session.
func (s *GameSession) HasParticipant(participantID string) bool {
	for _, p := range s.Participants {
		if p == participantID {
			return true
		}
	}
	return false
}
