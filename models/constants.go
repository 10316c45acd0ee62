package models

// ✅ Match statuses for waiting pool entries
const (
	MatchStatusWaiting = "waiting"
	MatchStatusMatched = "matched"
)

// ✅ Session lifecycle statuses
const (
	SessionStatusWaiting    = "waiting"
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
)

// ✅ Round sub-phases within an in_progress session
const (
	PhaseAwaitingPrompt  = "awaiting_prompt"
	PhaseAwaitingAnswers = "awaiting_answers"
	PhaseReviewing       = "reviewing"
)

// ✅ Feedback values
const (
	FeedbackLike    = "like"
	FeedbackDislike = "dislike"
)

// Table Names for DynamoDB
const WaitingPoolTable = "WaitingPool"
const GameSessionsTable = "GameSessions"
const UserProfilesTable = "UserProfiles"
