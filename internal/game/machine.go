package game

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/journal"
	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
	"github.com/louisbranch/grimoire/internal/platform/id"
)

// Archiver receives the final state of an ended game. The in-memory
// store keeps ended games too; archiving is for durable storage.
type Archiver interface {
	ArchiveGame(ctx context.Context, state *State) error
}

// Machine drives games through their phase cycle. All mutation goes
// through it, one writer at a time per game.
type Machine struct {
	catalog  *catalog.Catalog
	resolver ActionResolver
	journal  journal.Store
	store    *Store
	archiver Archiver

	now   func() time.Time
	newID func() string
}

// Option configures a Machine.
type Option func(*Machine)

// WithArchiver sets the durable store ended games are written to.
func WithArchiver(a Archiver) Option {
	return func(m *Machine) { m.archiver = a }
}

// NewMachine returns a machine resolving scripts against cat, abilities
// against resolver, and journaling through log.
func NewMachine(cat *catalog.Catalog, resolver ActionResolver, log journal.Store, opts ...Option) *Machine {
	m := &Machine{
		catalog:  cat,
		resolver: resolver,
		journal:  log,
		store:    NewStore(),
		now:      time.Now,
		newID:    id.MustNewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store exposes the machine's game store for read-only snapshot access.
func (m *Machine) Store() *Store {
	return m.store
}

// CreateGame starts a new game in the lobby for the given script. The
// script's roles are frozen into the game at creation.
func (m *Machine) CreateGame(ctx context.Context, scriptID string) (*State, error) {
	script, err := m.catalog.Resolve(scriptID)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	state := &State{
		GameID:     m.newID(),
		Phase:      PhaseLobby,
		Players:    make(map[string]*PlayerState),
		ScriptID:   script.ID,
		Characters: append([]catalog.RoleDefinition(nil), script.Roles...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.add(state); err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// AddPlayer seats a player in the lobby. Seats are unique per game.
// npcProfileID is empty for human seats.
func (m *Machine) AddPlayer(ctx context.Context, gameID, playerID, name string, seat int, npcProfileID string) error {
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	return m.store.withGame(gameID, func(state *State) error {
		if state.Phase != PhaseLobby {
			return transitionError(state.Phase, PhaseLobby, "players join in the lobby")
		}
		if _, ok := state.Players[playerID]; ok {
			return grimerrors.WithMetadata(grimerrors.CodeSeatTaken, "player already seated", map[string]string{
				"player_id": playerID,
			})
		}
		for _, p := range state.Players {
			if p.Seat == seat {
				return grimerrors.WithMetadata(grimerrors.CodeSeatTaken, "seat already taken", map[string]string{
					"seat": fmt.Sprintf("%d", seat),
				})
			}
		}

		now := m.now().UTC()
		state.Players[playerID] = &PlayerState{
			PlayerID:     playerID,
			Name:         name,
			IsAlive:      true,
			Seat:         seat,
			NPCProfileID: npcProfileID,
			LastActive:   now,
		}
		state.UpdatedAt = now
		return nil
	})
}

// Start moves a game from the lobby into setup. The seated player count
// must be within the script's supported bounds.
func (m *Machine) Start(ctx context.Context, gameID string) error {
	return m.store.withGame(gameID, func(state *State) error {
		if err := m.transition(state, PhaseSetup); err != nil {
			return err
		}

		script, err := m.catalog.Resolve(state.ScriptID)
		if err != nil {
			return err
		}
		count := len(state.Players)
		if !script.SupportsPlayerCount(count) {
			return grimerrors.WithMetadata(grimerrors.CodeInvalidPlayerCount, "player count outside script bounds", map[string]string{
				"count": fmt.Sprintf("%d", count),
				"min":   fmt.Sprintf("%d", script.Setup.PlayerCount.Min),
				"max":   fmt.Sprintf("%d", script.Setup.PlayerCount.Max),
			})
		}

		state.Phase = PhaseSetup
		state.UpdatedAt = m.now().UTC()
		return nil
	})
}

// AssignRoles gives every seated player a character from the game's
// frozen role set. Every player must receive a role.
func (m *Machine) AssignRoles(ctx context.Context, gameID string, assignments map[string]string) error {
	return m.store.withGame(gameID, func(state *State) error {
		if state.Phase != PhaseSetup {
			return transitionError(state.Phase, PhaseSetup, "roles are assigned during setup")
		}

		for playerID, roleID := range assignments {
			player, ok := state.Players[playerID]
			if !ok {
				return grimerrors.WithMetadata(grimerrors.CodePlayerNotFound, "player not found", map[string]string{
					"player_id": playerID,
				})
			}
			role, ok := state.Character(roleID)
			if !ok {
				return grimerrors.WithMetadata(grimerrors.CodeCharacterNotFound, "character not in this game's script", map[string]string{
					"character_id": roleID,
				})
			}
			character := role
			player.Character = &character
		}

		for _, p := range state.Players {
			if p.Character == nil {
				return grimerrors.WithMetadata(grimerrors.CodePlayerNotFound, "player has no assigned role", map[string]string{
					"player_id": p.PlayerID,
				})
			}
		}

		state.UpdatedAt = m.now().UTC()
		return nil
	})
}

// BeginNight enters the night phase and resolves its ability queue.
// From setup this is the game's first night; from day it starts the
// next cycle and increments the day counter.
func (m *Machine) BeginNight(ctx context.Context, gameID string, selections map[string]Target) error {
	return m.store.withGame(gameID, func(state *State) error {
		if err := m.transition(state, PhaseNight); err != nil {
			return err
		}
		if state.Phase == PhaseSetup {
			for _, p := range state.Players {
				if p.Character == nil {
					return transitionError(state.Phase, PhaseNight, "role assignment incomplete")
				}
			}
			state.Day = 1
		} else {
			state.Day++
		}

		state.Phase = PhaseNight
		return m.runQueue(ctx, state, selections)
	})
}

// BeginDay enters the day phase and resolves its ability queue.
func (m *Machine) BeginDay(ctx context.Context, gameID string, selections map[string]Target) error {
	return m.store.withGame(gameID, func(state *State) error {
		if err := m.transition(state, PhaseDay); err != nil {
			return err
		}
		state.Phase = PhaseDay
		return m.runQueue(ctx, state, selections)
	})
}

// Nominate opens a vote on the nominee. A nominee may only be nominated
// once per day; the game moves through nomination into the vote phase.
func (m *Machine) Nominate(ctx context.Context, gameID, nominatorID, nomineeID string) error {
	return m.store.withGame(gameID, func(state *State) error {
		if err := m.transition(state, PhaseNomination); err != nil {
			return err
		}

		nominator, ok := state.Players[nominatorID]
		if !ok {
			return playerNotFound(nominatorID)
		}
		if _, ok := state.Players[nomineeID]; !ok {
			return playerNotFound(nomineeID)
		}
		if !nominator.IsAlive {
			return grimerrors.WithMetadata(grimerrors.CodeVoterNotAlive, "dead players cannot nominate", map[string]string{
				"player_id": nominatorID,
			})
		}
		if state.hasNominationFor(nomineeID) {
			return grimerrors.WithMetadata(grimerrors.CodeNomineeAlreadyNominated, "nominee already nominated today", map[string]string{
				"player_id": nomineeID,
				"day":       fmt.Sprintf("%d", state.Day),
			})
		}

		now := m.now().UTC()
		state.Phase = PhaseVote
		state.VotingHistory = append(state.VotingHistory, VotingRecord{
			Day:       state.Day,
			Nominee:   nomineeID,
			Nominator: nominatorID,
			Open:      true,
			Timestamp: now,
		})
		nominator.LastActive = now
		state.UpdatedAt = now

		m.append(ctx, journal.Entry{
			GameID:   state.GameID,
			PlayerID: nominatorID,
			Type:     journal.TypeDecision,
			Content:  fmt.Sprintf("nominated %s", nomineeID),
			Metadata: map[string]string{journal.MetadataSubject: nomineeID},
		})
		return nil
	})
}

// CastVote records one vote on the open nomination. Votes must come
// from players alive at cast time; each player votes at most once.
func (m *Machine) CastVote(ctx context.Context, gameID, voterID string) error {
	return m.store.withGame(gameID, func(state *State) error {
		record := state.openNomination()
		if state.Phase != PhaseVote || record == nil {
			return grimerrors.New(grimerrors.CodeNominationClosed, "no open nomination to vote on")
		}

		voter, ok := state.Players[voterID]
		if !ok {
			return playerNotFound(voterID)
		}
		if !voter.IsAlive {
			return grimerrors.WithMetadata(grimerrors.CodeVoterNotAlive, "dead players cannot vote", map[string]string{
				"player_id": voterID,
			})
		}
		for _, cast := range record.Votes {
			if cast == voterID {
				return grimerrors.WithMetadata(grimerrors.CodeNominationClosed, "player already voted on this nomination", map[string]string{
					"player_id": voterID,
				})
			}
		}

		now := m.now().UTC()
		record.Votes = append(record.Votes, voterID)
		voter.Votes = append(voter.Votes, VoteRecord{
			Day:       state.Day,
			Nominee:   record.Nominee,
			Timestamp: now,
		})
		voter.LastActive = now
		state.UpdatedAt = now

		m.append(ctx, journal.Entry{
			GameID:   state.GameID,
			PlayerID: voterID,
			Type:     journal.TypeDecision,
			Content:  fmt.Sprintf("voted to execute %s", record.Nominee),
			Metadata: map[string]string{journal.MetadataSubject: record.Nominee},
		})
		return nil
	})
}

// CloseVote tallies the open nomination. Half the living players,
// rounded up, must vote to execute; otherwise play returns to day.
// It reports whether the nominee was executed.
func (m *Machine) CloseVote(ctx context.Context, gameID string) (bool, error) {
	executed := false
	err := m.store.withGame(gameID, func(state *State) error {
		record := state.openNomination()
		if state.Phase != PhaseVote || record == nil {
			return grimerrors.New(grimerrors.CodeNominationClosed, "no open nomination to close")
		}

		record.Open = false
		threshold := (state.AliveCount() + 1) / 2
		now := m.now().UTC()

		if len(record.Votes) < threshold {
			state.Phase = PhaseDay
			state.UpdatedAt = now
			return nil
		}

		state.Phase = PhaseExecution
		record.Executed = true
		executed = true
		if nominee, ok := state.Players[record.Nominee]; ok {
			nominee.IsAlive = false
		}
		state.UpdatedAt = now

		m.append(ctx, journal.Entry{
			GameID:   state.GameID,
			PlayerID: record.Nominee,
			Type:     journal.TypeObservation,
			Content:  fmt.Sprintf("%s was executed on day %d", record.Nominee, state.Day),
		})

		if winner, over := state.Outcome(); over {
			return m.end(ctx, state, winner)
		}
		state.Phase = PhaseDay
		return nil
	})
	return executed, err
}

// AddClaim records a self-reported claim on the player and journals it.
func (m *Machine) AddClaim(ctx context.Context, gameID, playerID, claim string) error {
	return m.store.withGame(gameID, func(state *State) error {
		player, ok := state.Players[playerID]
		if !ok {
			return playerNotFound(playerID)
		}

		now := m.now().UTC()
		player.Claims = append(player.Claims, claim)
		player.LastActive = now
		state.UpdatedAt = now

		m.append(ctx, journal.Entry{
			GameID:   state.GameID,
			PlayerID: playerID,
			Type:     journal.TypeClaim,
			Content:  claim,
		})
		return nil
	})
}

// RecordOpinion updates a player's current suspicion/trust scores for
// another player and journals the change. The journal keeps the full
// trail; player state keeps only the current value.
func (m *Machine) RecordOpinion(ctx context.Context, gameID string, update OpinionUpdate, note string) error {
	return m.store.withGame(gameID, func(state *State) error {
		player, ok := state.Players[update.From]
		if !ok {
			return playerNotFound(update.From)
		}
		if _, ok := state.Players[update.About]; !ok {
			return playerNotFound(update.About)
		}

		applyOpinion(player, update)
		now := m.now().UTC()
		player.LastActive = now
		state.UpdatedAt = now

		content := note
		if content == "" {
			content = fmt.Sprintf("updated opinion of %s", update.About)
		}
		m.append(ctx, journal.Entry{
			GameID:   state.GameID,
			PlayerID: update.From,
			Type:     journal.TypeSuspicion,
			Content:  content,
			Metadata: map[string]string{journal.MetadataSubject: update.About},
		})
		return nil
	})
}

// SuspicionNetwork derives the game's suspicion/trust graph from the
// current player opinions and the journal's suspicion entries.
func (m *Machine) SuspicionNetwork(ctx context.Context, gameID string) (journal.Network, error) {
	snapshot, err := m.store.Snapshot(gameID)
	if err != nil {
		return journal.Network{}, err
	}
	entries, err := m.journal.List(ctx, gameID, journal.Query{Type: journal.TypeSuspicion})
	if err != nil {
		return journal.Network{}, err
	}
	return journal.BuildNetwork(gameID, snapshot.Opinions(), entries), nil
}

// Snapshot returns a deep copy of the game's current state.
func (m *Machine) Snapshot(gameID string) (*State, error) {
	return m.store.Snapshot(gameID)
}

// runQueue snapshots the phase's ability queue and executes it entry by
// entry. Handler failures are fizzles for that handler only; the rest
// of the queue still runs. End conditions are checked after every
// applied delta, and the game ends once the queue completes.
func (m *Machine) runQueue(ctx context.Context, state *State, selections map[string]Target) error {
	queue := m.resolver.Resolve(state.Phase, state)

	var winner catalog.Alignment
	var over bool
	for _, entry := range queue {
		delta, entries, err := m.resolver.Execute(ctx, entry, state, selections[entry.RoleID])
		if err != nil {
			m.append(ctx, journal.Entry{
				GameID:   state.GameID,
				PlayerID: entry.PlayerID,
				Type:     journal.TypeObservation,
				Content:  fmt.Sprintf("%s ability fizzled: %v", entry.RoleID, err),
			})
			continue
		}

		m.applyDelta(state, delta)
		for _, logEntry := range entries {
			logEntry.GameID = state.GameID
			m.append(ctx, logEntry)
		}
		if !over {
			winner, over = state.Outcome()
		}
	}

	state.UpdatedAt = m.now().UTC()
	if over {
		return m.end(ctx, state, winner)
	}
	return nil
}

// applyDelta folds one handler's mutations into the state.
func (m *Machine) applyDelta(state *State, delta Delta) {
	for _, playerID := range delta.Kills {
		if p, ok := state.Players[playerID]; ok {
			p.IsAlive = false
		}
	}
	for _, playerID := range delta.Revives {
		if p, ok := state.Players[playerID]; ok {
			p.IsAlive = true
		}
	}
	for _, claim := range delta.Claims {
		if p, ok := state.Players[claim.PlayerID]; ok {
			p.Claims = append(p.Claims, claim.Claim)
		}
	}
	for _, update := range delta.Opinions {
		if p, ok := state.Players[update.From]; ok {
			applyOpinion(p, update)
		}
	}
}

// end moves the game to END with the winning side and archives it.
func (m *Machine) end(ctx context.Context, state *State, winner catalog.Alignment) error {
	state.Phase = PhaseEnd
	state.Winner = winner
	state.UpdatedAt = m.now().UTC()

	m.append(ctx, journal.Entry{
		GameID:   state.GameID,
		PlayerID: "storyteller",
		Type:     journal.TypeObservation,
		Content:  fmt.Sprintf("game over, %s wins", winner),
	})

	if m.archiver != nil {
		if err := m.archiver.ArchiveGame(ctx, state.Clone()); err != nil {
			return grimerrors.Wrap(grimerrors.CodeUnknown, "archive ended game", err)
		}
	}
	return nil
}

// transition validates a phase move without applying it.
func (m *Machine) transition(state *State, to Phase) error {
	if !isPhaseTransitionAllowed(state.Phase, to) {
		return transitionError(state.Phase, to, "transition not allowed")
	}
	return nil
}

// append writes a journal entry, tolerating journal validation errors
// so a bad entry never aborts a game mutation already applied.
func (m *Machine) append(ctx context.Context, entry journal.Entry) {
	if m.journal == nil {
		return
	}
	_, _ = m.journal.Append(ctx, entry)
}

func applyOpinion(player *PlayerState, update OpinionUpdate) {
	if update.Suspicion != nil {
		if player.Suspicions == nil {
			player.Suspicions = make(map[string]float64)
		}
		player.Suspicions[update.About] = *update.Suspicion
	}
	if update.Trust != nil {
		if player.TrustLevels == nil {
			player.TrustLevels = make(map[string]float64)
		}
		player.TrustLevels[update.About] = *update.Trust
	}
}

func transitionError(from, to Phase, message string) error {
	return grimerrors.WithMetadata(grimerrors.CodeInvalidTransition, message, map[string]string{
		"from": string(from),
		"to":   string(to),
	})
}

func playerNotFound(playerID string) error {
	return grimerrors.WithMetadata(grimerrors.CodePlayerNotFound, "player not found", map[string]string{
		"player_id": playerID,
	})
}
