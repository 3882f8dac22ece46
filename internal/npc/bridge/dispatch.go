package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/journal"
	"github.com/louisbranch/grimoire/internal/npc"
	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
)

// Supported agent-facing methods.
const (
	MethodGetGameState      = "get_game_state"
	MethodGetPlayerInfo     = "get_player_info"
	MethodGetVotingHistory  = "get_voting_history"
	MethodGetCharacterInfo  = "get_character_info"
	MethodGetNPCProfile     = "get_npc_profile"
	MethodListNPCProfiles   = "list_npc_profiles"
	MethodUpdateNPCBehavior = "update_npc_behavior"
	MethodGetJournalEntries = "get_journal_entries"
	MethodAddJournalEntry   = "add_journal_entry"
	MethodGetDecisionHist   = "get_decision_history"
	MethodGetSuspicionNet   = "get_suspicion_network"
)

// Dispatcher answers the agent's inbound queries against the referee's
// live state. All game access goes through snapshots; the agent never
// holds a reference into mutable state.
type Dispatcher struct {
	machine  *game.Machine
	journal  journal.Store
	profiles *npc.Registry
}

// NewDispatcher wires a dispatcher over the referee's core services.
func NewDispatcher(machine *game.Machine, log journal.Store, profiles *npc.Registry) *Dispatcher {
	return &Dispatcher{machine: machine, journal: log, profiles: profiles}
}

// Dispatch routes one method call and returns its encoded result.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, *rpcError) {
	switch method {
	case MethodGetGameState:
		return d.getGameState(params)
	case MethodGetPlayerInfo:
		return d.getPlayerInfo(params)
	case MethodGetVotingHistory:
		return d.getVotingHistory(params)
	case MethodGetCharacterInfo:
		return d.getCharacterInfo(params)
	case MethodGetNPCProfile:
		return d.getNPCProfile(params)
	case MethodListNPCProfiles:
		return d.listNPCProfiles()
	case MethodUpdateNPCBehavior:
		return d.updateNPCBehavior(params)
	case MethodGetJournalEntries:
		return d.getJournalEntries(ctx, params)
	case MethodAddJournalEntry:
		return d.addJournalEntry(ctx, params)
	case MethodGetDecisionHist:
		return d.getDecisionHistory(ctx, params)
	case MethodGetSuspicionNet:
		return d.getSuspicionNetwork(ctx, params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "unknown method: " + method}
	}
}

type gameParams struct {
	GameID string `json:"game_id"`
}

type playerParams struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

type characterParams struct {
	GameID      string `json:"game_id"`
	CharacterID string `json:"character_id"`
}

type profileParams struct {
	ProfileID string `json:"profile_id"`
}

type behaviorParams struct {
	ProfileID           string   `json:"profile_id"`
	ClaimPolicy         *string  `json:"claim_policy,omitempty"`
	VoteThreshold       *float64 `json:"vote_threshold,omitempty"`
	NominationThreshold *float64 `json:"nomination_threshold,omitempty"`
}

type journalQueryParams struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id,omitempty"`
	Type     string `json:"type,omitempty"`
	AfterSeq uint64 `json:"after_seq,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type addEntryParams struct {
	GameID   string            `json:"game_id"`
	PlayerID string            `json:"player_id"`
	Type     string            `json:"type"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (d *Dispatcher) getGameState(params json.RawMessage) (json.RawMessage, *rpcError) {
	var p gameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	state, err := d.machine.Snapshot(p.GameID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return encodeResult(stateToDTO(state))
}

func (d *Dispatcher) getPlayerInfo(params json.RawMessage) (json.RawMessage, *rpcError) {
	var p playerParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	state, err := d.machine.Snapshot(p.GameID)
	if err != nil {
		return nil, toRPCError(err)
	}
	player, ok := state.Player(p.PlayerID)
	if !ok {
		return nil, toRPCError(grimerrors.New(grimerrors.CodePlayerNotFound, "player not found"))
	}
	return encodeResult(playerToDTO(player))
}

func (d *Dispatcher) getVotingHistory(params json.RawMessage) (json.RawMessage, *rpcError) {
	var p gameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	state, err := d.machine.Snapshot(p.GameID)
	if err != nil {
		return nil, toRPCError(err)
	}
	records := make([]votingDTO, 0, len(state.VotingHistory))
	for _, record := range state.VotingHistory {
		records = append(records, votingToDTO(record))
	}
	return encodeResult(records)
}

func (d *Dispatcher) getCharacterInfo(params json.RawMessage) (json.RawMessage, *rpcError) {
	var p characterParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	state, err := d.machine.Snapshot(p.GameID)
	if err != nil {
		return nil, toRPCError(err)
	}
	role, ok := state.Character(p.CharacterID)
	if !ok {
		return nil, toRPCError(grimerrors.New(grimerrors.CodeCharacterNotFound, "character not in this game"))
	}
	return encodeResult(characterToDTO(role))
}

func (d *Dispatcher) getNPCProfile(params json.RawMessage) (json.RawMessage, *rpcError) {
	var p profileParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	profile, err := d.profiles.Get(p.ProfileID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return encodeResult(profile)
}

func (d *Dispatcher) listNPCProfiles() (json.RawMessage, *rpcError) {
	return encodeResult(d.profiles.List())
}

func (d *Dispatcher) updateNPCBehavior(params json.RawMessage) (json.RawMessage, *rpcError) {
	var p behaviorParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	update := npc.BehaviorUpdate{
		VoteThreshold:       p.VoteThreshold,
		NominationThreshold: p.NominationThreshold,
	}
	if p.ClaimPolicy != nil {
		policy := npc.ClaimPolicy(*p.ClaimPolicy)
		update.ClaimPolicy = &policy
	}
	profile, err := d.profiles.UpdateBehavior(p.ProfileID, update)
	if err != nil {
		return nil, toRPCError(err)
	}
	return encodeResult(profile)
}

func (d *Dispatcher) getJournalEntries(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpcError) {
	var p journalQueryParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	entries, err := d.journal.List(ctx, p.GameID, journal.Query{
		PlayerID: p.PlayerID,
		Type:     journal.EntryType(p.Type),
		AfterSeq: p.AfterSeq,
		Limit:    p.Limit,
	})
	if err != nil {
		return nil, toRPCError(err)
	}
	return encodeResult(entriesToDTO(entries))
}

func (d *Dispatcher) addJournalEntry(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpcError) {
	var p addEntryParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	entry, err := d.journal.Append(ctx, journal.Entry{
		GameID:   p.GameID,
		PlayerID: p.PlayerID,
		Type:     journal.EntryType(p.Type),
		Content:  p.Content,
		Metadata: p.Metadata,
	})
	if err != nil {
		return nil, toRPCError(err)
	}
	return encodeResult(entryToDTO(entry))
}

func (d *Dispatcher) getDecisionHistory(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpcError) {
	var p playerParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	entries, err := journal.DecisionHistory(ctx, d.journal, p.GameID, p.PlayerID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return encodeResult(entriesToDTO(entries))
}

func (d *Dispatcher) getSuspicionNetwork(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpcError) {
	var p gameParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	network, err := d.machine.SuspicionNetwork(ctx, p.GameID)
	if err != nil {
		return nil, toRPCError(err)
	}
	return encodeResult(networkToDTO(network))
}

func decodeParams(params json.RawMessage, into any) *rpcError {
	if len(params) == 0 {
		return &rpcError{Code: codeInvalidParams, Message: "params are required"}
	}
	if err := json.Unmarshal(params, into); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

func encodeResult(v any) (json.RawMessage, *rpcError) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, &rpcError{Code: codeInternalError, Message: "encode result: " + err.Error()}
	}
	return encoded, nil
}

func toRPCError(err error) *rpcError {
	return &rpcError{
		Code:    codeInternalError,
		Message: err.Error(),
		Data:    string(grimerrors.CodeOf(err)),
	}
}

// Wire shapes. The agent sees snake_case JSON; internal types stay
// wire-agnostic.

type stateDTO struct {
	GameID        string      `json:"game_id"`
	Phase         string      `json:"phase"`
	Day           int         `json:"day"`
	ScriptID      string      `json:"script_id"`
	Winner        string      `json:"winner,omitempty"`
	Players       []playerDTO `json:"players"`
	VotingHistory []votingDTO `json:"voting_history"`
}

type playerDTO struct {
	PlayerID     string             `json:"player_id"`
	Name         string             `json:"name"`
	CharacterID  string             `json:"character_id,omitempty"`
	IsAlive      bool               `json:"is_alive"`
	Seat         int                `json:"seat"`
	Claims       []string           `json:"claims,omitempty"`
	Suspicions   map[string]float64 `json:"suspicions,omitempty"`
	TrustLevels  map[string]float64 `json:"trust_levels,omitempty"`
	NPCProfileID string             `json:"npc_profile_id,omitempty"`
}

type votingDTO struct {
	Day       int      `json:"day"`
	Nominee   string   `json:"nominee"`
	Nominator string   `json:"nominator"`
	Votes     []string `json:"votes"`
	Executed  bool     `json:"executed"`
	Open      bool     `json:"open"`
}

type characterDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Alignment  string   `json:"alignment"`
	Type       string   `json:"type"`
	Precedence int      `json:"precedence"`
	When       string   `json:"when,omitempty"`
	Target     string   `json:"target,omitempty"`
	RulesText  string   `json:"rules_text,omitempty"`
	Public     string   `json:"public_visibility,omitempty"`
	PrivateTo  []string `json:"private_to,omitempty"`
}

type entryDTO struct {
	ID        string            `json:"id"`
	Seq       uint64            `json:"seq"`
	GameID    string            `json:"game_id"`
	PlayerID  string            `json:"player_id"`
	Type      string            `json:"type"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type edgeDTO struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Suspicion float64 `json:"suspicion"`
	Trust     float64 `json:"trust"`
	Entries   int     `json:"entries"`
}

type networkDTO struct {
	GameID string    `json:"game_id"`
	Edges  []edgeDTO `json:"edges"`
}

func stateToDTO(state *game.State) stateDTO {
	out := stateDTO{
		GameID:   state.GameID,
		Phase:    string(state.Phase),
		Day:      state.Day,
		ScriptID: state.ScriptID,
		Winner:   string(state.Winner),
	}
	for _, player := range state.PlayersBySeat() {
		out.Players = append(out.Players, playerToDTO(player))
	}
	for _, record := range state.VotingHistory {
		out.VotingHistory = append(out.VotingHistory, votingToDTO(record))
	}
	return out
}

func playerToDTO(player *game.PlayerState) playerDTO {
	out := playerDTO{
		PlayerID:     player.PlayerID,
		Name:         player.Name,
		IsAlive:      player.IsAlive,
		Seat:         player.Seat,
		Claims:       player.Claims,
		Suspicions:   player.Suspicions,
		TrustLevels:  player.TrustLevels,
		NPCProfileID: player.NPCProfileID,
	}
	if player.Character != nil {
		out.CharacterID = player.Character.ID
	}
	return out
}

func votingToDTO(record game.VotingRecord) votingDTO {
	return votingDTO{
		Day:       record.Day,
		Nominee:   record.Nominee,
		Nominator: record.Nominator,
		Votes:     record.Votes,
		Executed:  record.Executed,
		Open:      record.Open,
	}
}

func characterToDTO(role catalog.RoleDefinition) characterDTO {
	return characterDTO{
		ID:         role.ID,
		Name:       role.Name,
		Alignment:  string(role.Alignment),
		Type:       string(role.Type),
		Precedence: role.Precedence,
		When:       string(role.Ability.When),
		Target:     string(role.Ability.Target),
		RulesText:  role.RulesText(),
		Public:     string(role.Visibility.Public),
		PrivateTo:  role.Visibility.PrivateTo,
	}
}

func entryToDTO(entry journal.Entry) entryDTO {
	return entryDTO{
		ID:        entry.ID,
		Seq:       entry.Seq,
		GameID:    entry.GameID,
		PlayerID:  entry.PlayerID,
		Type:      string(entry.Type),
		Content:   entry.Content,
		Metadata:  entry.Metadata,
		Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func entriesToDTO(entries []journal.Entry) []entryDTO {
	out := make([]entryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entryToDTO(entry))
	}
	return out
}

func networkToDTO(network journal.Network) networkDTO {
	out := networkDTO{GameID: network.GameID}
	for _, edge := range network.Edges {
		out.Edges = append(out.Edges, edgeDTO{
			From:      edge.From,
			To:        edge.To,
			Suspicion: edge.Suspicion,
			Trust:     edge.Trust,
			Entries:   edge.Entries,
		})
	}
	return out
}
