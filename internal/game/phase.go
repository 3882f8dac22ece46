// Package game holds the authoritative state for running games and the
// phase machine that drives each one from lobby to end.
package game

// Phase is one stage of a game's turn cycle.
type Phase string

const (
	PhaseLobby      Phase = "LOBBY"
	PhaseSetup      Phase = "SETUP"
	PhaseNight      Phase = "NIGHT"
	PhaseDay        Phase = "DAY"
	PhaseNomination Phase = "NOMINATION"
	PhaseVote       Phase = "VOTE"
	PhaseExecution  Phase = "EXECUTION"
	PhaseEnd        Phase = "END"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseLobby, PhaseSetup, PhaseNight, PhaseDay, PhaseNomination,
		PhaseVote, PhaseExecution, PhaseEnd:
		return true
	}
	return false
}

// isPhaseTransitionAllowed reports whether a game may move from one phase
// to another. Transitions are linear with one day/night cycle; any phase
// may end the game when an end condition is met.
func isPhaseTransitionAllowed(from, to Phase) bool {
	if from == to {
		return false
	}
	if to == PhaseEnd {
		return from != PhaseEnd
	}

	switch from {
	case PhaseLobby:
		return to == PhaseSetup
	case PhaseSetup:
		return to == PhaseNight
	case PhaseNight:
		return to == PhaseDay
	case PhaseDay:
		return to == PhaseNomination || to == PhaseNight
	case PhaseNomination:
		return to == PhaseVote || to == PhaseDay
	case PhaseVote:
		return to == PhaseExecution || to == PhaseDay
	case PhaseExecution:
		return to == PhaseDay
	case PhaseEnd:
		return false
	default:
		return false
	}
}
