// Package action maps characters to ability-effect handlers and executes
// them in precedence order during their phase.
package action

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/journal"
	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
)

// Handler resolves one ability. It receives a read-only copy of the
// game state plus the ability's target selection and returns the
// mutations it wants applied. Handlers never mutate state in place.
//
// Returning an error with code InvalidTarget marks the ability as
// fizzled; any other error is treated the same way, scoped to this
// handler only.
type Handler func(ctx context.Context, state *game.State, self *game.PlayerState, target game.Target) (game.Delta, []journal.Entry, error)

type registration struct {
	handler       Handler
	firesWhenDead bool
}

// RegisterOption adjusts one handler registration.
type RegisterOption func(*registration)

// FiresWhenDead queues the ability even when its holder is dead.
func FiresWhenDead() RegisterOption {
	return func(r *registration) { r.firesWhenDead = true }
}

type registryKey struct {
	characterID string
	phase       game.Phase
}

// Registry holds at most one handler per (character, phase) pair.
// Characters without a compiled handler get a no-op that journals a
// placeholder, so scripts with unimplemented abilities stay playable.
type Registry struct {
	mu       sync.RWMutex
	handlers map[registryKey]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[registryKey]registration)}
}

// Register binds a handler to a character and phase. Re-registering
// the same pair fails with DuplicateHandler.
func (r *Registry) Register(characterID string, phase game.Phase, handler Handler, opts ...RegisterOption) error {
	if characterID == "" {
		return fmt.Errorf("character id is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	if phase != game.PhaseNight && phase != game.PhaseDay {
		return fmt.Errorf("handlers fire at night or day, got %s", phase)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{characterID: characterID, phase: phase}
	if _, ok := r.handlers[key]; ok {
		return grimerrors.WithMetadata(grimerrors.CodeDuplicateHandler, "handler already registered", map[string]string{
			"character_id": characterID,
			"phase":        string(phase),
		})
	}

	reg := registration{handler: handler}
	for _, opt := range opts {
		opt(&reg)
	}
	r.handlers[key] = reg
	return nil
}

// Resolve implements game.ActionResolver. It selects every character
// in the game whose ability fires this phase and whose holder is
// eligible, ordered by precedence ascending with ties broken by the
// script's role order. The returned queue is a fresh snapshot each
// call; executing entries never re-sorts a queue already issued.
func (r *Registry) Resolve(phase game.Phase, state *game.State) []game.QueueEntry {
	if state == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var queue []game.QueueEntry
	for order, role := range state.Characters {
		if !abilityFiresIn(role, phase) {
			continue
		}
		holder := holderOf(state, role.ID)
		if holder == nil {
			continue
		}
		if !holder.IsAlive {
			reg, ok := r.handlers[registryKey{characterID: role.ID, phase: phase}]
			if !ok || !reg.firesWhenDead {
				continue
			}
		}
		queue = append(queue, game.QueueEntry{
			RoleID:     role.ID,
			PlayerID:   holder.PlayerID,
			Precedence: role.Precedence,
			Order:      order,
		})
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Precedence != queue[j].Precedence {
			return queue[i].Precedence < queue[j].Precedence
		}
		return queue[i].Order < queue[j].Order
	})
	return queue
}

// Execute implements game.ActionResolver. Handler failures, invalid
// targets included, become fizzles: zero mutation plus one observation
// entry. Execute itself only errors on malformed queue entries.
func (r *Registry) Execute(ctx context.Context, entry game.QueueEntry, state *game.State, target game.Target) (game.Delta, []journal.Entry, error) {
	role, ok := state.Character(entry.RoleID)
	if !ok {
		return game.Delta{}, nil, grimerrors.WithMetadata(grimerrors.CodeCharacterNotFound, "queued character not in game", map[string]string{
			"character_id": entry.RoleID,
		})
	}
	holder, ok := state.Player(entry.PlayerID)
	if !ok {
		return game.Delta{}, nil, grimerrors.WithMetadata(grimerrors.CodePlayerNotFound, "queued player not in game", map[string]string{
			"player_id": entry.PlayerID,
		})
	}

	r.mu.RLock()
	reg, registered := r.handlers[registryKey{characterID: entry.RoleID, phase: state.Phase}]
	r.mu.RUnlock()

	if !registered {
		return game.Delta{}, []journal.Entry{placeholderEntry(role, holder)}, nil
	}

	if err := validateTarget(state, role, holder, target); err != nil {
		return game.Delta{}, []journal.Entry{fizzleEntry(role, holder, err)}, nil
	}

	view := state.Clone()
	self, _ := view.Player(entry.PlayerID)
	delta, entries, err := reg.handler(ctx, view, self, target)
	if err != nil {
		return game.Delta{}, []journal.Entry{fizzleEntry(role, holder, err)}, nil
	}
	return delta, entries, nil
}

// validateTarget checks the target selection against the ability's
// shape and the targeted players' current eligibility.
func validateTarget(state *game.State, role catalog.RoleDefinition, holder *game.PlayerState, target game.Target) error {
	switch role.Ability.Target {
	case catalog.TargetNone, "":
		return nil
	case catalog.TargetSelf:
		if len(target.PlayerIDs) == 1 && target.PlayerIDs[0] != holder.PlayerID {
			return grimerrors.New(grimerrors.CodeInvalidTarget, "ability targets only its own holder")
		}
	case catalog.TargetAny:
		if len(target.PlayerIDs) != 1 {
			return grimerrors.New(grimerrors.CodeInvalidTarget, "ability requires exactly one target")
		}
	case catalog.TargetTwoPlayers:
		if len(target.PlayerIDs) != 2 {
			return grimerrors.New(grimerrors.CodeInvalidTarget, "ability requires exactly two targets")
		}
	}

	for _, playerID := range target.PlayerIDs {
		targeted, ok := state.Player(playerID)
		if !ok {
			return grimerrors.WithMetadata(grimerrors.CodeInvalidTarget, "target not in game", map[string]string{
				"player_id": playerID,
			})
		}
		if !targeted.IsAlive {
			return grimerrors.WithMetadata(grimerrors.CodeInvalidTarget, "target is dead", map[string]string{
				"player_id": playerID,
			})
		}
	}
	return nil
}

func holderOf(state *game.State, roleID string) *game.PlayerState {
	for _, p := range state.PlayersBySeat() {
		if p.Character != nil && p.Character.ID == roleID {
			return p
		}
	}
	return nil
}

func fizzleEntry(role catalog.RoleDefinition, holder *game.PlayerState, cause error) journal.Entry {
	return journal.Entry{
		PlayerID: holder.PlayerID,
		Type:     journal.TypeObservation,
		Content:  fmt.Sprintf("%s ability fizzled: %v", role.Name, cause),
		Metadata: map[string]string{"character_id": role.ID},
	}
}

func placeholderEntry(role catalog.RoleDefinition, holder *game.PlayerState) journal.Entry {
	content := fmt.Sprintf("%s ability has no compiled handler", role.Name)
	if text := role.RulesText(); text != "" {
		content = fmt.Sprintf("%s; rules text: %s", content, text)
	}
	return journal.Entry{
		PlayerID: holder.PlayerID,
		Type:     journal.TypeObservation,
		Content:  content,
		Metadata: map[string]string{"character_id": role.ID},
	}
}

func abilityFiresIn(role catalog.RoleDefinition, phase game.Phase) bool {
	switch role.Ability.When {
	case catalog.TimingNight:
		return phase == game.PhaseNight
	case catalog.TimingDay:
		return phase == game.PhaseDay
	default:
		return false
	}
}
