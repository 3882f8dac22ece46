package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/journal"
	"github.com/louisbranch/grimoire/internal/npc"
	"github.com/louisbranch/grimoire/internal/scoring"
)

// toolTimeout bounds every tool call against the referee.
const toolTimeout = 5 * time.Second

func registerGameTools(mcpServer *mcp.Server, machine *game.Machine) {
	mcp.AddTool(mcpServer, GameStateTool(), GameStateHandler(machine))
	mcp.AddTool(mcpServer, PlayerInfoTool(), PlayerInfoHandler(machine))
	mcp.AddTool(mcpServer, VotingHistoryTool(), VotingHistoryHandler(machine))
}

func registerJournalTools(mcpServer *mcp.Server, machine *game.Machine, log journal.Store) {
	mcp.AddTool(mcpServer, JournalEntriesTool(), JournalEntriesHandler(log))
	mcp.AddTool(mcpServer, SuspicionNetworkTool(), SuspicionNetworkHandler(machine))
}

func registerCatalogTools(mcpServer *mcp.Server, cat *catalog.Catalog, history History) {
	mcp.AddTool(mcpServer, CharacterInfoTool(), CharacterInfoHandler(cat))
	mcp.AddTool(mcpServer, ScriptScoreTool(), ScriptScoreHandler(cat, history))
}

// registerCatalogResources registers readable catalog listings.
func registerCatalogResources(mcpServer *mcp.Server, cat *catalog.Catalog) {
	mcpServer.AddResource(ScriptListResource(), ScriptListResourceHandler(cat))
	mcpServer.AddResource(RoleListResource(), RoleListResourceHandler(cat))
}

// registerProfileResources registers the readable NPC profile listing.
func registerProfileResources(mcpServer *mcp.Server, profiles *npc.Registry) {
	mcpServer.AddResource(ProfileListResource(), ProfileListResourceHandler(profiles))
}

// GameStateInput identifies the game to inspect.
type GameStateInput struct {
	GameID string `json:"game_id" jsonschema:"game identifier"`
}

// PlayerSummary is one seat in a game state result.
type PlayerSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Seat         int    `json:"seat"`
	Alive        bool   `json:"alive"`
	Character    string `json:"character,omitempty"`
	NPCProfileID string `json:"npc_profile_id,omitempty"`
}

// GameStateResult is the MCP tool output for a game snapshot.
type GameStateResult struct {
	GameID   string          `json:"game_id"`
	ScriptID string          `json:"script_id"`
	Phase    string          `json:"phase"`
	Day      int             `json:"day"`
	Winner   string          `json:"winner,omitempty"`
	Players  []PlayerSummary `json:"players"`
}

// GameStateTool defines the MCP tool schema for game snapshots.
func GameStateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "game_state",
		Description: "Reads the current phase, day, and seating of a game",
	}
}

// GameStateHandler reads a game snapshot from the referee.
func GameStateHandler(machine *game.Machine) mcp.ToolHandlerFor[GameStateInput, GameStateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GameStateInput) (*mcp.CallToolResult, GameStateResult, error) {
		state, err := machine.Snapshot(input.GameID)
		if err != nil {
			return nil, GameStateResult{}, fmt.Errorf("game state failed: %w", err)
		}
		result := GameStateResult{
			GameID:   state.GameID,
			ScriptID: state.ScriptID,
			Phase:    string(state.Phase),
			Day:      state.Day,
			Winner:   string(state.Winner),
		}
		for _, player := range state.PlayersBySeat() {
			summary := PlayerSummary{
				ID:           player.PlayerID,
				Name:         player.Name,
				Seat:         player.Seat,
				Alive:        player.IsAlive,
				NPCProfileID: player.NPCProfileID,
			}
			if player.Character != nil {
				summary.Character = player.Character.ID
			}
			result.Players = append(result.Players, summary)
		}
		return nil, result, nil
	}
}

// PlayerInfoInput identifies one player in a game.
type PlayerInfoInput struct {
	GameID   string `json:"game_id" jsonschema:"game identifier"`
	PlayerID string `json:"player_id" jsonschema:"player identifier"`
}

// PlayerInfoResult is the MCP tool output for one player.
type PlayerInfoResult struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Seat        int                `json:"seat"`
	Alive       bool               `json:"alive"`
	Character   string             `json:"character,omitempty"`
	Claims      []string           `json:"claims,omitempty"`
	Suspicions  map[string]float64 `json:"suspicions,omitempty"`
	TrustLevels map[string]float64 `json:"trust_levels,omitempty"`
}

// PlayerInfoTool defines the MCP tool schema for player details.
func PlayerInfoTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "player_info",
		Description: "Reads one player's seat, claims, and opinion scores",
	}
}

// PlayerInfoHandler reads one player from a game snapshot.
func PlayerInfoHandler(machine *game.Machine) mcp.ToolHandlerFor[PlayerInfoInput, PlayerInfoResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlayerInfoInput) (*mcp.CallToolResult, PlayerInfoResult, error) {
		state, err := machine.Snapshot(input.GameID)
		if err != nil {
			return nil, PlayerInfoResult{}, fmt.Errorf("player info failed: %w", err)
		}
		player, ok := state.Player(input.PlayerID)
		if !ok {
			return nil, PlayerInfoResult{}, fmt.Errorf("player %q is not in game %s", input.PlayerID, input.GameID)
		}
		result := PlayerInfoResult{
			ID:          player.PlayerID,
			Name:        player.Name,
			Seat:        player.Seat,
			Alive:       player.IsAlive,
			Claims:      player.Claims,
			Suspicions:  player.Suspicions,
			TrustLevels: player.TrustLevels,
		}
		if player.Character != nil {
			result.Character = player.Character.ID
		}
		return nil, result, nil
	}
}

// VotingHistoryInput identifies the game to inspect.
type VotingHistoryInput struct {
	GameID string `json:"game_id" jsonschema:"game identifier"`
}

// NominationRecord is one nomination in a voting history result.
type NominationRecord struct {
	Day       int      `json:"day"`
	Nominee   string   `json:"nominee"`
	Nominator string   `json:"nominator"`
	Votes     []string `json:"votes,omitempty"`
	Executed  bool     `json:"executed"`
	Open      bool     `json:"open"`
}

// VotingHistoryResult is the MCP tool output for a game's nominations.
type VotingHistoryResult struct {
	GameID      string             `json:"game_id"`
	Nominations []NominationRecord `json:"nominations"`
}

// VotingHistoryTool defines the MCP tool schema for voting history.
func VotingHistoryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "voting_history",
		Description: "Reads every nomination and vote recorded in a game",
	}
}

// VotingHistoryHandler reads the nominations of a game.
func VotingHistoryHandler(machine *game.Machine) mcp.ToolHandlerFor[VotingHistoryInput, VotingHistoryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input VotingHistoryInput) (*mcp.CallToolResult, VotingHistoryResult, error) {
		state, err := machine.Snapshot(input.GameID)
		if err != nil {
			return nil, VotingHistoryResult{}, fmt.Errorf("voting history failed: %w", err)
		}
		result := VotingHistoryResult{GameID: state.GameID}
		for _, record := range state.VotingHistory {
			result.Nominations = append(result.Nominations, NominationRecord{
				Day:       record.Day,
				Nominee:   record.Nominee,
				Nominator: record.Nominator,
				Votes:     record.Votes,
				Executed:  record.Executed,
				Open:      record.Open,
			})
		}
		return nil, result, nil
	}
}

// JournalEntriesInput selects journal entries for one game.
type JournalEntriesInput struct {
	GameID    string `json:"game_id" jsonschema:"game identifier"`
	PlayerID  string `json:"player_id,omitempty" jsonschema:"optional author filter"`
	Type      string `json:"type,omitempty" jsonschema:"optional entry type filter"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum entries to return"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
}

// JournalEntry is one journal entry in a tool result.
type JournalEntry struct {
	ID        string            `json:"id"`
	Seq       uint64            `json:"seq"`
	PlayerID  string            `json:"player_id,omitempty"`
	Type      string            `json:"type"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// JournalEntriesResult is the MCP tool output for a journal query.
type JournalEntriesResult struct {
	GameID        string         `json:"game_id"`
	Entries       []JournalEntry `json:"entries"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

// JournalEntriesTool defines the MCP tool schema for journal queries.
func JournalEntriesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "journal_entries",
		Description: "Reads a game's journal, optionally filtered by author or type",
	}
}

// JournalEntriesHandler queries the journal store.
func JournalEntriesHandler(log journal.Store) mcp.ToolHandlerFor[JournalEntriesInput, JournalEntriesResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input JournalEntriesInput) (*mcp.CallToolResult, JournalEntriesResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		filterKey := input.PlayerID + "|" + input.Type
		var afterSeq uint64
		if input.PageToken != "" {
			seq, err := journal.DecodePageToken(input.PageToken, filterKey)
			if err != nil {
				return nil, JournalEntriesResult{}, fmt.Errorf("journal query failed: %w", err)
			}
			afterSeq = seq
		}

		entries, err := log.List(runCtx, input.GameID, journal.Query{
			PlayerID: input.PlayerID,
			Type:     journal.EntryType(input.Type),
			AfterSeq: afterSeq,
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, JournalEntriesResult{}, fmt.Errorf("journal query failed: %w", err)
		}

		result := JournalEntriesResult{GameID: input.GameID}
		if input.Limit > 0 && len(entries) == input.Limit {
			result.NextPageToken = journal.EncodePageToken(entries[len(entries)-1].Seq, filterKey)
		}
		for _, entry := range entries {
			result.Entries = append(result.Entries, JournalEntry{
				ID:        entry.ID,
				Seq:       entry.Seq,
				PlayerID:  entry.PlayerID,
				Type:      string(entry.Type),
				Content:   entry.Content,
				Metadata:  entry.Metadata,
				Timestamp: entry.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		return nil, result, nil
	}
}

// SuspicionNetworkInput identifies the game to inspect.
type SuspicionNetworkInput struct {
	GameID string `json:"game_id" jsonschema:"game identifier"`
}

// SuspicionEdge is one directed opinion in a network result.
type SuspicionEdge struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Suspicion float64 `json:"suspicion"`
	Trust     float64 `json:"trust"`
	Entries   int     `json:"entries"`
}

// SuspicionNetworkResult is the MCP tool output for a suspicion graph.
type SuspicionNetworkResult struct {
	GameID string          `json:"game_id"`
	Edges  []SuspicionEdge `json:"edges"`
}

// SuspicionNetworkTool defines the MCP tool schema for suspicion graphs.
func SuspicionNetworkTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "suspicion_network",
		Description: "Builds the directed suspicion and trust graph for a game",
	}
}

// SuspicionNetworkHandler builds a game's suspicion network.
func SuspicionNetworkHandler(machine *game.Machine) mcp.ToolHandlerFor[SuspicionNetworkInput, SuspicionNetworkResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SuspicionNetworkInput) (*mcp.CallToolResult, SuspicionNetworkResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		network, err := machine.SuspicionNetwork(runCtx, input.GameID)
		if err != nil {
			return nil, SuspicionNetworkResult{}, fmt.Errorf("suspicion network failed: %w", err)
		}
		result := SuspicionNetworkResult{GameID: network.GameID}
		for _, edge := range network.Edges {
			result.Edges = append(result.Edges, SuspicionEdge{
				From:      edge.From,
				To:        edge.To,
				Suspicion: edge.Suspicion,
				Trust:     edge.Trust,
				Entries:   edge.Entries,
			})
		}
		return nil, result, nil
	}
}

// CharacterInfoInput identifies one character in the catalog.
type CharacterInfoInput struct {
	RoleID string `json:"role_id" jsonschema:"character identifier"`
}

// CharacterInfoResult is the MCP tool output for one character.
type CharacterInfoResult struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Alignment  string `json:"alignment"`
	Type       string `json:"type"`
	Timing     string `json:"timing"`
	Target     string `json:"target"`
	Precedence int    `json:"precedence"`
	RulesText  string `json:"rules_text,omitempty"`
}

// CharacterInfoTool defines the MCP tool schema for character lookups.
func CharacterInfoTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "character_info",
		Description: "Reads one character's timing, targeting, and rules text",
	}
}

// CharacterInfoHandler looks up a character in the catalog.
func CharacterInfoHandler(cat *catalog.Catalog) mcp.ToolHandlerFor[CharacterInfoInput, CharacterInfoResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CharacterInfoInput) (*mcp.CallToolResult, CharacterInfoResult, error) {
		role, ok := cat.Role(input.RoleID)
		if !ok {
			return nil, CharacterInfoResult{}, fmt.Errorf("character %q is not in the catalog", input.RoleID)
		}
		return nil, CharacterInfoResult{
			ID:         role.ID,
			Name:       role.Name,
			Alignment:  string(role.Alignment),
			Type:       string(role.Type),
			Timing:     string(role.Ability.When),
			Target:     string(role.Ability.Target),
			Precedence: role.Precedence,
			RulesText:  role.RulesText(),
		}, nil
	}
}

// ScriptScoreInput identifies one script in the catalog.
type ScriptScoreInput struct {
	ScriptID string `json:"script_id" jsonschema:"script identifier"`
}

// ScriptScoreResult is the MCP tool output for a balance estimate.
type ScriptScoreResult struct {
	ScriptID        string  `json:"script_id"`
	InformationGain float64 `json:"information_gain"`
	ControlBalance  float64 `json:"control_balance"`
	TimeCushion     float64 `json:"time_cushion"`
	Redundancy      float64 `json:"redundancy"`
	Volatility      float64 `json:"volatility"`
	Composite       float64 `json:"composite"`
	Momentum        float64 `json:"momentum"`
	GamesRecorded   int     `json:"games_recorded"`
}

// ScriptScoreTool defines the MCP tool schema for balance estimates.
func ScriptScoreTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "script_score",
		Description: "Estimates a script's balance from its roles and recorded games",
	}
}

// ScriptScoreHandler scores one script against its play history.
func ScriptScoreHandler(cat *catalog.Catalog, history History) mcp.ToolHandlerFor[ScriptScoreInput, ScriptScoreResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ScriptScoreInput) (*mcp.CallToolResult, ScriptScoreResult, error) {
		script, err := cat.Resolve(input.ScriptID)
		if err != nil {
			return nil, ScriptScoreResult{}, fmt.Errorf("script score failed: %w", err)
		}

		var records []scoring.PlayRecord
		if history != nil {
			runCtx, cancel := context.WithTimeout(ctx, toolTimeout)
			defer cancel()
			records, err = history.PlayHistory(runCtx, script.ID)
			if err != nil {
				return nil, ScriptScoreResult{}, fmt.Errorf("script score failed: %w", err)
			}
		}

		metrics := scoring.Score(script, records)
		return nil, ScriptScoreResult{
			ScriptID:        script.ID,
			InformationGain: metrics.InformationGain,
			ControlBalance:  metrics.ControlBalance,
			TimeCushion:     metrics.TimeCushion,
			Redundancy:      metrics.Redundancy,
			Volatility:      metrics.Volatility,
			Composite:       metrics.Composite,
			Momentum:        metrics.Momentum,
			GamesRecorded:   len(records),
		}, nil
	}
}

// ScriptListEntry is one script in the scripts resource payload.
type ScriptListEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
	Roles      int    `json:"roles"`
}

// ScriptListPayload is the scripts resource payload.
type ScriptListPayload struct {
	Scripts []ScriptListEntry `json:"scripts"`
}

// ScriptListResource defines the readable script listing.
func ScriptListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "script_list",
		Title:       "Scripts",
		Description: "Readable listing of every registered script",
		MIMEType:    "application/json",
		URI:         "scripts://list",
	}
}

// ScriptListResourceHandler returns the script listing resource.
func ScriptListResourceHandler(cat *catalog.Catalog) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		payload := ScriptListPayload{}
		for _, script := range cat.Scripts() {
			payload.Scripts = append(payload.Scripts, ScriptListEntry{
				ID:         script.ID,
				Name:       script.Name,
				Version:    script.Version,
				MinPlayers: script.Setup.PlayerCount.Min,
				MaxPlayers: script.Setup.PlayerCount.Max,
				Roles:      len(script.Roles),
			})
		}
		return resourceResult(ScriptListResource().URI, req, payload)
	}
}

// RoleListEntry is one character in the roles resource payload.
type RoleListEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Alignment string `json:"alignment"`
	Type      string `json:"type"`
}

// RoleListPayload is the roles resource payload.
type RoleListPayload struct {
	Roles []RoleListEntry `json:"roles"`
}

// RoleListResource defines the readable character listing.
func RoleListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "role_list",
		Title:       "Characters",
		Description: "Readable listing of every registered character",
		MIMEType:    "application/json",
		URI:         "roles://list",
	}
}

// RoleListResourceHandler returns the character listing resource.
func RoleListResourceHandler(cat *catalog.Catalog) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		payload := RoleListPayload{}
		for _, role := range cat.Roles() {
			payload.Roles = append(payload.Roles, RoleListEntry{
				ID:        role.ID,
				Name:      role.Name,
				Alignment: string(role.Alignment),
				Type:      string(role.Type),
			})
		}
		return resourceResult(RoleListResource().URI, req, payload)
	}
}

// ProfileListEntry is one NPC profile in the profiles resource payload.
type ProfileListEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Archetype string `json:"archetype"`
}

// ProfileListPayload is the profiles resource payload.
type ProfileListPayload struct {
	Profiles []ProfileListEntry `json:"profiles"`
}

// ProfileListResource defines the readable NPC profile listing.
func ProfileListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "npc_profile_list",
		Title:       "NPC Profiles",
		Description: "Readable listing of registered NPC personality profiles",
		MIMEType:    "application/json",
		URI:         "profiles://list",
	}
}

// ProfileListResourceHandler returns the NPC profile listing resource.
func ProfileListResourceHandler(profiles *npc.Registry) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		payload := ProfileListPayload{}
		if profiles != nil {
			for _, profile := range profiles.List() {
				payload.Profiles = append(payload.Profiles, ProfileListEntry{
					ID:        profile.ID,
					Name:      profile.Name,
					Archetype: profile.Archetype,
				})
			}
		}
		return resourceResult(ProfileListResource().URI, req, payload)
	}
}

// resourceResult marshals a listing payload into a read result.
func resourceResult(defaultURI string, req *mcp.ReadResourceRequest, payload any) (*mcp.ReadResourceResult, error) {
	uri := defaultURI
	if req != nil && req.Params != nil && req.Params.URI != "" {
		uri = req.Params.URI
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
