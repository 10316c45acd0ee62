package services

// Notifier announces match-found transitions to interested clients. Calls are
// fire-and-forget: delivery failures must never affect matching correctness,
// polling remains the source of truth.
type Notifier interface {
	MatchFound(sessionID string, participantIDs []string)
}

// NopNotifier drops all notifications (memory backend, tests).
type NopNotifier struct{}

func (NopNotifier) MatchFound(string, []string) {}
