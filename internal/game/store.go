package game

import (
	"sync"

	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
)

// Store holds every live game. Each game has its own lock, so mutations
// serialize per game while independent games run fully in parallel.
type Store struct {
	mu    sync.Mutex
	games map[string]*slot
}

type slot struct {
	mu    sync.Mutex
	state *State
}

// NewStore returns an empty game store.
func NewStore() *Store {
	return &Store{games: make(map[string]*slot)}
}

// add registers a new game. The caller owns id uniqueness.
func (s *Store) add(state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[state.GameID]; ok {
		return grimerrors.WithMetadata(grimerrors.CodeInvalidTransition, "game already exists", map[string]string{
			"game_id": state.GameID,
		})
	}
	s.games[state.GameID] = &slot{state: state}
	return nil
}

// withGame runs fn while holding the game's lock. fn may mutate the
// state; it must not retain references past the call.
func (s *Store) withGame(gameID string, fn func(*State) error) error {
	s.mu.Lock()
	sl, ok := s.games[gameID]
	s.mu.Unlock()
	if !ok {
		return grimerrors.WithMetadata(grimerrors.CodeGameNotFound, "game not found", map[string]string{
			"game_id": gameID,
		})
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(sl.state)
}

// Snapshot returns a deep copy of the game's state for readers.
func (s *Store) Snapshot(gameID string) (*State, error) {
	var snapshot *State
	err := s.withGame(gameID, func(state *State) error {
		snapshot = state.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GameIDs returns the ids of every game in the store, ended games
// included. Ended games are archived in place, never deleted.
func (s *Store) GameIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.games))
	for id := range s.games {
		out = append(out, id)
	}
	return out
}
