package game

import (
	"context"

	"github.com/louisbranch/grimoire/internal/journal"
)

// Target is the player selection an ability handler receives.
type Target struct {
	PlayerIDs []string
}

// QueueEntry is one slot in a phase's snapshot of pending abilities.
type QueueEntry struct {
	RoleID     string
	PlayerID   string
	Precedence int
	// Order is the role's catalog position, breaking precedence ties.
	Order int
}

// ClaimUpdate appends one self-reported claim to a player.
type ClaimUpdate struct {
	PlayerID string
	Claim    string
}

// OpinionUpdate sets a player's current suspicion or trust score for
// another player. Nil fields leave the existing score untouched.
type OpinionUpdate struct {
	From      string
	About     string
	Suspicion *float64
	Trust     *float64
}

// Delta describes the state mutations one ability handler produced.
// Handlers never mutate state in place; the machine applies deltas
// after each handler returns, keeping resolution replayable.
type Delta struct {
	Kills    []string
	Revives  []string
	Claims   []ClaimUpdate
	Opinions []OpinionUpdate
}

// IsZero reports whether the delta mutates nothing.
func (d Delta) IsZero() bool {
	return len(d.Kills) == 0 && len(d.Revives) == 0 &&
		len(d.Claims) == 0 && len(d.Opinions) == 0
}

// ActionResolver supplies the ordered ability queue for a phase and
// executes individual entries against a read view of the state.
type ActionResolver interface {
	// Resolve selects every phase-eligible character with a handler,
	// ordered by precedence then catalog order. The returned queue is
	// a snapshot; executing entries never re-sorts it.
	Resolve(phase Phase, state *State) []QueueEntry
	// Execute runs one handler and returns its mutations and journal
	// entries. Invalid targets surface as fizzles inside the returned
	// entries, not as errors.
	Execute(ctx context.Context, entry QueueEntry, state *State, target Target) (Delta, []journal.Entry, error)
}
