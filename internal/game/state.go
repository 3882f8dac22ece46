package game

import (
	"sort"
	"time"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/journal"
)

// VoteRecord is one vote a player cast, kept on the voter.
type VoteRecord struct {
	Day       int
	Nominee   string
	Timestamp time.Time
}

// VotingRecord is one nomination and its vote tally. Votes keeps voter
// ids in cast order; that order breaks ties.
type VotingRecord struct {
	Day       int
	Nominee   string
	Nominator string
	Votes     []string
	Executed  bool
	Open      bool
	Timestamp time.Time
}

// PlayerState is the referee's view of one seat.
type PlayerState struct {
	PlayerID  string
	Name      string
	Character *catalog.RoleDefinition
	IsAlive   bool
	// Seat is unique per game and orders adjacency.
	Seat   int
	Claims []string
	Votes  []VoteRecord
	// Suspicions and TrustLevels map other player ids to scores in [0, 1].
	// A missing key means no opinion formed, not zero.
	Suspicions   map[string]float64
	TrustLevels  map[string]float64
	LastActive   time.Time
	NPCProfileID string
}

// State is the authoritative mutable state of one game instance.
type State struct {
	GameID   string
	Phase    Phase
	Day      int
	Players  map[string]*PlayerState
	ScriptID string
	// Characters is the script's role set frozen at setup, so mid-game
	// catalog edits never retroactively change a running game.
	Characters    []catalog.RoleDefinition
	VotingHistory []VotingRecord
	Winner        catalog.Alignment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Player returns the player with the given id.
func (s *State) Player(id string) (*PlayerState, bool) {
	p, ok := s.Players[id]
	return p, ok
}

// Character returns the frozen role definition with the given id.
func (s *State) Character(roleID string) (catalog.RoleDefinition, bool) {
	for _, role := range s.Characters {
		if role.ID == roleID {
			return role, true
		}
	}
	return catalog.RoleDefinition{}, false
}

// PlayersBySeat returns all players ordered by seat number.
func (s *State) PlayersBySeat() []*PlayerState {
	out := make([]*PlayerState, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

// AliveCount returns the number of living players.
func (s *State) AliveCount() int {
	count := 0
	for _, p := range s.Players {
		if p.IsAlive {
			count++
		}
	}
	return count
}

// openNomination returns the day's open voting record, if any.
func (s *State) openNomination() *VotingRecord {
	for i := len(s.VotingHistory) - 1; i >= 0; i-- {
		record := &s.VotingHistory[i]
		if record.Day == s.Day && record.Open {
			return record
		}
	}
	return nil
}

// hasNominationFor reports whether the nominee already has a voting
// record for the current day.
func (s *State) hasNominationFor(nominee string) bool {
	for _, record := range s.VotingHistory {
		if record.Day == s.Day && record.Nominee == nominee {
			return true
		}
	}
	return false
}

// Opinions flattens every player's current suspicion and trust scores
// into journal opinions for suspicion-network derivation.
func (s *State) Opinions() []journal.Opinion {
	var out []journal.Opinion
	for _, p := range s.PlayersBySeat() {
		about := make(map[string]bool)
		for id := range p.Suspicions {
			about[id] = true
		}
		for id := range p.TrustLevels {
			about[id] = true
		}
		ids := make([]string, 0, len(about))
		for id := range about {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			out = append(out, journal.Opinion{
				From:      p.PlayerID,
				About:     id,
				Suspicion: p.Suspicions[id],
				Trust:     p.TrustLevels[id],
			})
		}
	}
	return out
}

// Outcome evaluates the end conditions: good wins when every demon is
// dead; evil wins when living evil players equal or outnumber living
// good players, or when only demons remain alive.
func (s *State) Outcome() (catalog.Alignment, bool) {
	var demonsAlive, evilAlive, goodAlive, othersAlive int
	for _, p := range s.Players {
		if !p.IsAlive || p.Character == nil {
			continue
		}
		switch p.Character.Alignment {
		case catalog.AlignmentEvil:
			evilAlive++
		case catalog.AlignmentGood:
			goodAlive++
		}
		if p.Character.Type == catalog.TypeDemon {
			demonsAlive++
		} else {
			othersAlive++
		}
	}

	if demonsAlive == 0 {
		return catalog.AlignmentGood, true
	}
	if evilAlive >= goodAlive || othersAlive == 0 {
		return catalog.AlignmentEvil, true
	}
	return "", false
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (s *State) Clone() *State {
	out := *s

	out.Players = make(map[string]*PlayerState, len(s.Players))
	for id, p := range s.Players {
		cp := *p
		if p.Character != nil {
			character := *p.Character
			cp.Character = &character
		}
		cp.Claims = append([]string(nil), p.Claims...)
		cp.Votes = append([]VoteRecord(nil), p.Votes...)
		cp.Suspicions = copyScores(p.Suspicions)
		cp.TrustLevels = copyScores(p.TrustLevels)
		out.Players[id] = &cp
	}

	out.Characters = append([]catalog.RoleDefinition(nil), s.Characters...)
	out.VotingHistory = make([]VotingRecord, len(s.VotingHistory))
	for i, record := range s.VotingHistory {
		record.Votes = append([]string(nil), record.Votes...)
		out.VotingHistory[i] = record
	}
	return &out
}

func copyScores(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
