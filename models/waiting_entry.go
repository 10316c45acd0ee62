package models

import "time"

// WaitingEntry represents one participant waiting to be grouped, stored in DynamoDB
type WaitingEntry struct {
	PK            string    `dynamodbav:"PK" json:"PK"`                         // "MODE#<modeId>"
	SK            string    `dynamodbav:"SK" json:"SK"`                         // "PLAYER#<participantId>"
	ParticipantID string    `dynamodbav:"participantId" json:"participantId"`   // Opaque identifier, unique within a pool
	Mode          string    `dynamodbav:"mode" json:"mode"`                     // Mini-game this entry belongs to
	Criteria      string    `dynamodbav:"criteria" json:"criteria"`             // Pairing label for 1-on-1 modes
	GroupSize     int       `dynamodbav:"groupSize,omitempty" json:"groupSize"` // Target size for group modes
	MatchStatus   string    `dynamodbav:"matchStatus" json:"matchStatus"`       // "waiting" or "matched"
	SessionID     string    `dynamodbav:"sessionId,omitempty" json:"sessionId,omitempty"`
	IsPrimary     bool      `dynamodbav:"isPrimary" json:"isPrimary"` // Chooser role, assigned at match time
	JoinedAt      time.Time `dynamodbav:"joinedAt" json:"joinedAt"`
	ExpiresAt     int64     `dynamodbav:"expiresAt" json:"expiresAt"` // Epoch seconds, DynamoDB TTL attribute
}

// PoolPK builds the partition key for a mode's waiting bucket.
func PoolPK(mode string) string {
	return "MODE#" + mode
}

// PoolSK builds the sort key for a participant's entry.
func PoolSK(participantID string) string {
	return "PLAYER#" + participantID
}
