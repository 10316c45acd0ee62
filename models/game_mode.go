package models

// MatchBy selects how a mode groups its waiting pool.
type MatchBy string

const (
	MatchByCriteria  MatchBy = "criteria"  // 1-on-1 pairing by a symmetric criteria label
	MatchByGroupSize MatchBy = "groupSize" // N-player grouping by target group size
)

// GameMode parameterizes the session engine for one mini-game. The three
// mini-games are instances of the same machine; only these knobs differ.
type GameMode struct {
	ID            string   `json:"id"`
	MatchBy       MatchBy  `json:"matchBy"`
	MinPlayers    int      `json:"minPlayers"`
	MaxPlayers    int      `json:"maxPlayers"`
	RoundLimit    int      `json:"roundLimit"`              // 0 = rotate indefinitely
	AnswerChoices []string `json:"answerChoices,omitempty"` // nil = free text answers
}

// Mode IDs
const (
	ModeSpark  = "spark"  // 1-on-1 prompt/response, free text, 5 rounds
	ModeBanter = "banter" // 1-on-1 variant, fixed choices, 3 rounds
	ModeHuddle = "huddle" // party game, groups of 3..5, indefinite rotation
)

// Modes is the registry of playable mini-games.
var Modes = map[string]GameMode{
	ModeSpark: {
		ID:         ModeSpark,
		MatchBy:    MatchByCriteria,
		MinPlayers: 2,
		MaxPlayers: 2,
		RoundLimit: 5,
	},
	ModeBanter: {
		ID:            ModeBanter,
		MatchBy:       MatchByCriteria,
		MinPlayers:    2,
		MaxPlayers:    2,
		RoundLimit:    3,
		AnswerChoices: []string{"yes", "no", "maybe"},
	},
	ModeHuddle: {
		ID:         ModeHuddle,
		MatchBy:    MatchByGroupSize,
		MinPlayers: 3,
		MaxPlayers: 5,
		RoundLimit: 0,
	},
}

// ExpectedAnswers returns how many answers close the current round: every
// participant except the turn holder. Computed against the live participant
// count, never a value cached at round start.
func (m GameMode) ExpectedAnswers(participantCount int) int {
	return participantCount - 1
}

// AllowsGroupSize reports whether a requested group size is playable in this mode.
func (m GameMode) AllowsGroupSize(size int) bool {
	return size >= m.MinPlayers && size <= m.MaxPlayers
}

// AllowsAnswer validates an answer value against the mode's choice set.
// Free-text modes accept any non-empty value.
func (m GameMode) AllowsAnswer(value string) bool {
	if value == "" {
		return false
	}
	if len(m.AnswerChoices) == 0 {
		return true
	}
	for _, choice := range m.AnswerChoices {
		if choice == value {
			return true
		}
	}
	return false
}
