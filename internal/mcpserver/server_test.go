// Package mcpserver tests the MCP tool and resource handlers.
package mcpserver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/game/action"
	"github.com/louisbranch/grimoire/internal/journal"
	"github.com/louisbranch/grimoire/internal/npc"
	"github.com/louisbranch/grimoire/internal/scoring"
)

// failingTransport returns a connection error for tests.
type failingTransport struct{}

func (f failingTransport) Connect(context.Context) (mcp.Connection, error) {
	return nil, errors.New("transport failure")
}

// stubHistory returns a fixed set of play records.
type stubHistory struct {
	records []scoring.PlayRecord
	err     error
}

func (s stubHistory) PlayHistory(ctx context.Context, scriptID string) ([]scoring.PlayRecord, error) {
	return s.records, s.err
}

type fixture struct {
	catalog  *catalog.Catalog
	machine  *game.Machine
	journal  *journal.MemoryStore
	profiles *npc.Registry
	gameID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat := catalog.New()
	roles := []catalog.RoleDefinition{
		{
			ID: "empath", Name: "Empath",
			Alignment: catalog.AlignmentGood, Type: catalog.TypeTownsfolk,
			Ability: catalog.Ability{
				ID: "empath-ability", When: catalog.TimingNight, Target: catalog.TargetNone,
				Effects: []catalog.Effect{{Kind: catalog.EffectRulesText, RulesText: "Learn how many living neighbors are evil."}},
			},
			Precedence: 100,
		},
		{
			ID: "chef", Name: "Chef",
			Alignment: catalog.AlignmentGood, Type: catalog.TypeTownsfolk,
			Ability:    catalog.Ability{ID: "chef-ability", When: catalog.TimingPassive, Target: catalog.TargetNone},
			Precedence: 100,
		},
		{
			ID: "imp", Name: "Imp",
			Alignment: catalog.AlignmentEvil, Type: catalog.TypeDemon,
			Ability:    catalog.Ability{ID: "imp-ability", When: catalog.TimingNight, Target: catalog.TargetAny},
			Precedence: 400,
		},
	}
	for _, role := range roles {
		if err := cat.AddRole(role); err != nil {
			t.Fatalf("AddRole(%s) error = %v", role.ID, err)
		}
	}
	if err := cat.AddScript(catalog.Script{
		ID:    "tiny",
		Name:  "Tiny",
		Roles: roles,
		Setup: catalog.Setup{
			PlayerCount: catalog.PlayerBounds{Min: 3, Max: 3},
			Distribution: catalog.Distribution{
				catalog.TypeTownsfolk: 2,
				catalog.TypeDemon:     1,
			},
		},
	}); err != nil {
		t.Fatalf("AddScript() error = %v", err)
	}

	log := journal.NewMemoryStore()
	machine := game.NewMachine(cat, action.NewRegistry(), log)

	profiles, err := npc.NewRegistry(npc.DefaultProfiles()...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	ctx := context.Background()
	state, err := machine.CreateGame(ctx, "tiny")
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}
	players := []struct {
		id   string
		npc  string
		seat int
	}{
		{id: "ana", seat: 1},
		{id: "bo", seat: 2},
		{id: "cy", seat: 3, npc: "schemer"},
	}
	for _, p := range players {
		if err := machine.AddPlayer(ctx, state.GameID, p.id, p.id, p.seat, p.npc); err != nil {
			t.Fatalf("AddPlayer(%s) error = %v", p.id, err)
		}
	}

	return &fixture{catalog: cat, machine: machine, journal: log, profiles: profiles, gameID: state.GameID}
}

func TestGameStateHandler(t *testing.T) {
	fx := newFixture(t)
	handler := GameStateHandler(fx.machine)

	_, result, err := handler(context.Background(), nil, GameStateInput{GameID: fx.gameID})
	if err != nil {
		t.Fatalf("GameStateHandler() error = %v", err)
	}
	if result.Phase != string(game.PhaseLobby) {
		t.Fatalf("Phase = %q, want %q", result.Phase, game.PhaseLobby)
	}
	if len(result.Players) != 3 {
		t.Fatalf("len(Players) = %d, want 3", len(result.Players))
	}
	for i, want := range []string{"ana", "bo", "cy"} {
		if result.Players[i].ID != want {
			t.Fatalf("Players[%d].ID = %q, want %q", i, result.Players[i].ID, want)
		}
	}
	if result.Players[2].NPCProfileID != "schemer" {
		t.Fatalf("Players[2].NPCProfileID = %q, want schemer", result.Players[2].NPCProfileID)
	}
}

func TestGameStateHandlerUnknownGame(t *testing.T) {
	fx := newFixture(t)
	handler := GameStateHandler(fx.machine)

	if _, _, err := handler(context.Background(), nil, GameStateInput{GameID: "missing"}); err == nil {
		t.Fatal("GameStateHandler() error = nil, want not-found failure")
	}
}

func TestPlayerInfoHandler(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if err := fx.machine.AddClaim(ctx, fx.gameID, "ana", "I am the empath"); err != nil {
		t.Fatalf("AddClaim() error = %v", err)
	}

	_, result, err := PlayerInfoHandler(fx.machine)(ctx, nil, PlayerInfoInput{GameID: fx.gameID, PlayerID: "ana"})
	if err != nil {
		t.Fatalf("PlayerInfoHandler() error = %v", err)
	}
	if result.Seat != 1 || !result.Alive {
		t.Fatalf("result = %+v, want seat 1 alive", result)
	}
	if len(result.Claims) != 1 || result.Claims[0] != "I am the empath" {
		t.Fatalf("Claims = %v, want the empath claim", result.Claims)
	}

	if _, _, err := PlayerInfoHandler(fx.machine)(ctx, nil, PlayerInfoInput{GameID: fx.gameID, PlayerID: "zed"}); err == nil {
		t.Fatal("PlayerInfoHandler() error = nil, want missing player failure")
	}
}

func TestJournalEntriesHandler(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	entries := []journal.Entry{
		{GameID: fx.gameID, PlayerID: "ana", Type: journal.TypeClaim, Content: "I am the empath"},
		{GameID: fx.gameID, PlayerID: "bo", Type: journal.TypeObservation, Content: "cy went quiet"},
	}
	for _, entry := range entries {
		if _, err := fx.journal.Append(ctx, entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	_, result, err := JournalEntriesHandler(fx.journal)(ctx, nil, JournalEntriesInput{
		GameID: fx.gameID,
		Type:   string(journal.TypeClaim),
	})
	if err != nil {
		t.Fatalf("JournalEntriesHandler() error = %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0].Content != "I am the empath" {
		t.Fatalf("Entries = %v, want the claim entry", result.Entries)
	}
	if result.Entries[0].Seq == 0 || result.Entries[0].Timestamp == "" {
		t.Fatalf("entry missing seq or timestamp: %+v", result.Entries[0])
	}
}

func TestJournalEntriesHandlerPagination(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		entry := journal.Entry{GameID: fx.gameID, PlayerID: "ana", Type: journal.TypeObservation, Content: content}
		if _, err := fx.journal.Append(ctx, entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	handler := JournalEntriesHandler(fx.journal)
	_, first, err := handler(ctx, nil, JournalEntriesInput{GameID: fx.gameID, Limit: 2})
	if err != nil {
		t.Fatalf("JournalEntriesHandler() error = %v", err)
	}
	if len(first.Entries) != 2 || first.NextPageToken == "" {
		t.Fatalf("first page = %d entries, token %q; want 2 entries and a token", len(first.Entries), first.NextPageToken)
	}

	_, second, err := handler(ctx, nil, JournalEntriesInput{GameID: fx.gameID, Limit: 2, PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("JournalEntriesHandler() error = %v", err)
	}
	if len(second.Entries) != 1 || second.Entries[0].Content != "three" {
		t.Fatalf("second page = %v, want the last entry", second.Entries)
	}
	if second.NextPageToken != "" {
		t.Fatalf("NextPageToken = %q, want empty on the final page", second.NextPageToken)
	}

	_, _, err = handler(ctx, nil, JournalEntriesInput{
		GameID:    fx.gameID,
		Type:      string(journal.TypeClaim),
		Limit:     2,
		PageToken: first.NextPageToken,
	})
	if err == nil {
		t.Fatal("JournalEntriesHandler() error = nil, want filter mismatch failure")
	}
}

func TestSuspicionNetworkHandler(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	suspicion := 0.8
	err := fx.machine.RecordOpinion(ctx, fx.gameID, game.OpinionUpdate{
		From: "ana", About: "cy", Suspicion: &suspicion,
	}, "kept changing the story")
	if err != nil {
		t.Fatalf("RecordOpinion() error = %v", err)
	}

	_, result, err := SuspicionNetworkHandler(fx.machine)(ctx, nil, SuspicionNetworkInput{GameID: fx.gameID})
	if err != nil {
		t.Fatalf("SuspicionNetworkHandler() error = %v", err)
	}
	if len(result.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(result.Edges))
	}
	edge := result.Edges[0]
	if edge.From != "ana" || edge.To != "cy" || edge.Suspicion != 0.8 || edge.Entries != 1 {
		t.Fatalf("edge = %+v, want ana->cy suspicion 0.8 with one entry", edge)
	}
}

func TestCharacterInfoHandler(t *testing.T) {
	fx := newFixture(t)
	handler := CharacterInfoHandler(fx.catalog)

	_, result, err := handler(context.Background(), nil, CharacterInfoInput{RoleID: "empath"})
	if err != nil {
		t.Fatalf("CharacterInfoHandler() error = %v", err)
	}
	if result.Timing != string(catalog.TimingNight) || result.Precedence != 100 {
		t.Fatalf("result = %+v, want night timing at precedence 100", result)
	}
	if !strings.Contains(result.RulesText, "living neighbors") {
		t.Fatalf("RulesText = %q, want the ability prose", result.RulesText)
	}

	if _, _, err := handler(context.Background(), nil, CharacterInfoInput{RoleID: "dragon"}); err == nil {
		t.Fatal("CharacterInfoHandler() error = nil, want missing character failure")
	}
}

func TestScriptScoreHandler(t *testing.T) {
	fx := newFixture(t)
	history := stubHistory{records: []scoring.PlayRecord{
		{GameID: "g1", Winner: catalog.AlignmentGood, Days: 3, PlayerCount: 3, Executions: 1},
		{GameID: "g2", Winner: catalog.AlignmentEvil, Days: 2, PlayerCount: 3, Executions: 1},
	}}

	_, result, err := ScriptScoreHandler(fx.catalog, history)(context.Background(), nil, ScriptScoreInput{ScriptID: "tiny"})
	if err != nil {
		t.Fatalf("ScriptScoreHandler() error = %v", err)
	}
	if result.GamesRecorded != 2 {
		t.Fatalf("GamesRecorded = %d, want 2", result.GamesRecorded)
	}
	if result.Composite < 0 || result.Composite > 100 {
		t.Fatalf("Composite = %v, want [0, 100]", result.Composite)
	}
}

func TestScriptScoreHandlerWithoutHistory(t *testing.T) {
	fx := newFixture(t)

	_, result, err := ScriptScoreHandler(fx.catalog, nil)(context.Background(), nil, ScriptScoreInput{ScriptID: "tiny"})
	if err != nil {
		t.Fatalf("ScriptScoreHandler() error = %v", err)
	}
	if result.GamesRecorded != 0 {
		t.Fatalf("GamesRecorded = %d, want 0", result.GamesRecorded)
	}

	if _, _, err := ScriptScoreHandler(fx.catalog, nil)(context.Background(), nil, ScriptScoreInput{ScriptID: "missing"}); err == nil {
		t.Fatal("ScriptScoreHandler() error = nil, want missing script failure")
	}
}

func TestScriptListResourceHandler(t *testing.T) {
	fx := newFixture(t)

	result, err := ScriptListResourceHandler(fx.catalog)(context.Background(), nil)
	if err != nil {
		t.Fatalf("ScriptListResourceHandler() error = %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("len(Contents) = %d, want 1", len(result.Contents))
	}
	content := result.Contents[0]
	if content.URI != "scripts://list" {
		t.Fatalf("URI = %q, want scripts://list", content.URI)
	}
	if !strings.Contains(content.Text, `"tiny"`) {
		t.Fatalf("Text = %s, want the tiny script", content.Text)
	}
}

func TestProfileListResourceHandler(t *testing.T) {
	fx := newFixture(t)

	result, err := ProfileListResourceHandler(fx.profiles)(context.Background(), nil)
	if err != nil {
		t.Fatalf("ProfileListResourceHandler() error = %v", err)
	}
	if !strings.Contains(result.Contents[0].Text, `"schemer"`) {
		t.Fatalf("Text = %s, want the schemer profile", result.Contents[0].Text)
	}
}

func TestServeWithFailingTransport(t *testing.T) {
	fx := newFixture(t)
	server := New(fx.catalog, fx.machine, fx.journal, fx.profiles, nil)

	if err := server.serveWithTransport(context.Background(), failingTransport{}); err == nil {
		t.Fatal("serveWithTransport() error = nil, want transport failure")
	}
}

func TestServeUnconfiguredServer(t *testing.T) {
	var server *Server
	if err := server.serveWithTransport(context.Background(), failingTransport{}); err == nil {
		t.Fatal("serveWithTransport() error = nil, want configuration failure")
	}
}
