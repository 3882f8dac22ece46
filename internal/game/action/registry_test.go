package action

import (
	"context"
	"strings"
	"testing"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/journal"
	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
)

func nightRole(id string, roleType catalog.RoleType, precedence int) catalog.RoleDefinition {
	alignment := catalog.AlignmentGood
	if roleType == catalog.TypeMinion || roleType == catalog.TypeDemon {
		alignment = catalog.AlignmentEvil
	}
	return catalog.RoleDefinition{
		ID:         id,
		Name:       id,
		Alignment:  alignment,
		Type:       roleType,
		Precedence: precedence,
		Ability: catalog.Ability{
			ID:     id + "-ability",
			When:   catalog.TimingNight,
			Target: catalog.TargetAny,
			Effects: []catalog.Effect{
				{Kind: catalog.EffectRulesText, RulesText: "does a " + id + " thing"},
			},
		},
	}
}

// nightState seats one player per role, in role order, at night.
func nightState(roles ...catalog.RoleDefinition) *game.State {
	state := &game.State{
		GameID:     "game-1",
		Phase:      game.PhaseNight,
		Day:        1,
		Players:    make(map[string]*game.PlayerState),
		Characters: roles,
	}
	for i := range roles {
		role := roles[i]
		playerID := "holder-" + role.ID
		state.Players[playerID] = &game.PlayerState{
			PlayerID:  playerID,
			Name:      role.Name,
			Character: &role,
			IsAlive:   true,
			Seat:      i + 1,
		}
	}
	return state
}

func noopHandler(ctx context.Context, state *game.State, self *game.PlayerState, target game.Target) (game.Delta, []journal.Entry, error) {
	return game.Delta{}, nil, nil
}

func TestRegisterDuplicateHandler(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register("imp", game.PhaseNight, noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := registry.Register("imp", game.PhaseNight, noopHandler)
	if grimerrors.CodeOf(err) != grimerrors.CodeDuplicateHandler {
		t.Fatalf("Register(again) error = %v, want code %s", err, grimerrors.CodeDuplicateHandler)
	}

	// Same character, different phase is a distinct pair.
	if err := registry.Register("imp", game.PhaseDay, noopHandler); err != nil {
		t.Fatalf("Register(day) error = %v", err)
	}
}

func TestResolveOrdersByPrecedenceThenScriptOrder(t *testing.T) {
	washerwoman := nightRole("washerwoman", catalog.TypeTownsfolk, 100)
	empath := nightRole("empath", catalog.TypeTownsfolk, 100)
	imp := nightRole("imp", catalog.TypeDemon, 400)

	// Script order deliberately lists the demon first.
	state := nightState(imp, washerwoman, empath)
	registry := NewRegistry()

	queue := registry.Resolve(game.PhaseNight, state)
	if len(queue) != 3 {
		t.Fatalf("len(queue) = %d, want 3", len(queue))
	}

	want := []string{"washerwoman", "empath", "imp"}
	for i, roleID := range want {
		if queue[i].RoleID != roleID {
			t.Fatalf("queue[%d].RoleID = %s, want %s", i, queue[i].RoleID, roleID)
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	state := nightState(
		nightRole("imp", catalog.TypeDemon, 400),
		nightRole("poisoner", catalog.TypeMinion, 300),
		nightRole("empath", catalog.TypeTownsfolk, 100),
		nightRole("chef", catalog.TypeTownsfolk, 100),
	)
	registry := NewRegistry()

	first := registry.Resolve(game.PhaseNight, state)
	for i := 0; i < 10; i++ {
		again := registry.Resolve(game.PhaseNight, state)
		if len(again) != len(first) {
			t.Fatalf("len(queue) = %d, want %d", len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("queue[%d] = %+v, want %+v", j, again[j], first[j])
			}
		}
	}
}

func TestResolveSkipsDeadHolders(t *testing.T) {
	empath := nightRole("empath", catalog.TypeTownsfolk, 100)
	ravenkeeper := nightRole("ravenkeeper", catalog.TypeTownsfolk, 110)
	state := nightState(empath, ravenkeeper)
	state.Players["holder-empath"].IsAlive = false
	state.Players["holder-ravenkeeper"].IsAlive = false

	registry := NewRegistry()
	if err := registry.Register("ravenkeeper", game.PhaseNight, noopHandler, FiresWhenDead()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	queue := registry.Resolve(game.PhaseNight, state)
	if len(queue) != 1 {
		t.Fatalf("len(queue) = %d, want 1", len(queue))
	}
	if queue[0].RoleID != "ravenkeeper" {
		t.Fatalf("queue[0].RoleID = %s, want ravenkeeper", queue[0].RoleID)
	}
}

func TestResolveSkipsOtherPhases(t *testing.T) {
	vigilante := nightRole("vigilante", catalog.TypeTownsfolk, 100)
	vigilante.Ability.When = catalog.TimingDay
	passive := nightRole("soldier", catalog.TypeTownsfolk, 100)
	passive.Ability.When = catalog.TimingPassive
	empath := nightRole("empath", catalog.TypeTownsfolk, 100)

	state := nightState(vigilante, passive, empath)
	registry := NewRegistry()

	queue := registry.Resolve(game.PhaseNight, state)
	if len(queue) != 1 || queue[0].RoleID != "empath" {
		t.Fatalf("night queue = %+v, want only empath", queue)
	}

	state.Phase = game.PhaseDay
	queue = registry.Resolve(game.PhaseDay, state)
	if len(queue) != 1 || queue[0].RoleID != "vigilante" {
		t.Fatalf("day queue = %+v, want only vigilante", queue)
	}
}

func TestExecuteDeadTargetFizzles(t *testing.T) {
	imp := nightRole("imp", catalog.TypeDemon, 400)
	soldier := nightRole("soldier", catalog.TypeTownsfolk, 100)
	state := nightState(imp, soldier)
	// The target died earlier in the same night's queue.
	state.Players["holder-soldier"].IsAlive = false

	registry := NewRegistry()
	called := false
	err := registry.Register("imp", game.PhaseNight, func(ctx context.Context, state *game.State, self *game.PlayerState, target game.Target) (game.Delta, []journal.Entry, error) {
		called = true
		return game.Delta{Kills: target.PlayerIDs}, nil, nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	queue := registry.Resolve(game.PhaseNight, state)
	if len(queue) != 1 {
		t.Fatalf("len(queue) = %d, want 1", len(queue))
	}

	delta, entries, err := registry.Execute(context.Background(), queue[0], state, game.Target{PlayerIDs: []string{"holder-soldier"}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if called {
		t.Fatal("handler ran despite an invalid target")
	}
	if !delta.IsZero() {
		t.Fatalf("delta = %+v, want zero", delta)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Type != journal.TypeObservation {
		t.Fatalf("entries[0].Type = %s, want %s", entries[0].Type, journal.TypeObservation)
	}
	if !strings.Contains(entries[0].Content, "fizzled") {
		t.Fatalf("entries[0].Content = %q, want mention of fizzle", entries[0].Content)
	}
}

func TestExecuteTargetShapeMismatchFizzles(t *testing.T) {
	seer := nightRole("seer", catalog.TypeTownsfolk, 100)
	seer.Ability.Target = catalog.TargetTwoPlayers
	other := nightRole("chef", catalog.TypeTownsfolk, 100)
	state := nightState(seer, other)

	registry := NewRegistry()
	if err := registry.Register("seer", game.PhaseNight, noopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	entry := game.QueueEntry{RoleID: "seer", PlayerID: "holder-seer", Precedence: 100}
	delta, entries, err := registry.Execute(context.Background(), entry, state, game.Target{PlayerIDs: []string{"holder-chef"}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !delta.IsZero() || len(entries) != 1 {
		t.Fatalf("Execute() = (%+v, %d entries), want fizzle", delta, len(entries))
	}
}

func TestExecuteUnregisteredAbilityLogsPlaceholder(t *testing.T) {
	empath := nightRole("empath", catalog.TypeTownsfolk, 100)
	state := nightState(empath)
	registry := NewRegistry()

	entry := game.QueueEntry{RoleID: "empath", PlayerID: "holder-empath", Precedence: 100}
	delta, entries, err := registry.Execute(context.Background(), entry, state, game.Target{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !delta.IsZero() {
		t.Fatalf("delta = %+v, want zero", delta)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if !strings.Contains(entries[0].Content, "does a empath thing") {
		t.Fatalf("placeholder content = %q, want rules text included", entries[0].Content)
	}
}

func TestExecuteHandlerDeltaFlowsThroughMachine(t *testing.T) {
	// Full path: a compiled night ability kills its target and the
	// machine applies the delta and journals the handler's entries.
	imp := nightRole("imp", catalog.TypeDemon, 400)
	empath := nightRole("empath", catalog.TypeTownsfolk, 100)
	chef := nightRole("chef", catalog.TypeTownsfolk, 100)

	cat := catalog.New()
	for _, role := range []catalog.RoleDefinition{empath, chef, imp} {
		if err := cat.AddRole(role); err != nil {
			t.Fatalf("AddRole() error = %v", err)
		}
	}
	script := catalog.Script{
		ID:    "tiny",
		Name:  "Tiny",
		Roles: []catalog.RoleDefinition{empath, chef, imp},
		Setup: catalog.Setup{
			PlayerCount: catalog.PlayerBounds{Min: 3, Max: 3},
			Distribution: catalog.Distribution{
				catalog.TypeTownsfolk: 2,
				catalog.TypeDemon:     1,
			},
		},
	}
	if err := cat.AddScript(script); err != nil {
		t.Fatalf("AddScript() error = %v", err)
	}

	registry := NewRegistry()
	err := registry.Register("imp", game.PhaseNight, func(ctx context.Context, state *game.State, self *game.PlayerState, target game.Target) (game.Delta, []journal.Entry, error) {
		return game.Delta{Kills: target.PlayerIDs}, []journal.Entry{{
			PlayerID: self.PlayerID,
			Type:     journal.TypeObservation,
			Content:  "chose a victim",
		}}, nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	log := journal.NewMemoryStore()
	m := game.NewMachine(cat, registry, log)
	ctx := context.Background()

	state, err := m.CreateGame(ctx, "tiny")
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}
	for i, playerID := range []string{"ana", "bo", "cy"} {
		if err := m.AddPlayer(ctx, state.GameID, playerID, playerID, i+1, ""); err != nil {
			t.Fatalf("AddPlayer() error = %v", err)
		}
	}
	if err := m.Start(ctx, state.GameID); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	assignments := map[string]string{"ana": "empath", "bo": "chef", "cy": "imp"}
	if err := m.AssignRoles(ctx, state.GameID, assignments); err != nil {
		t.Fatalf("AssignRoles() error = %v", err)
	}

	selections := map[string]game.Target{"imp": {PlayerIDs: []string{"ana"}}}
	if err := m.BeginNight(ctx, state.GameID, selections); err != nil {
		t.Fatalf("BeginNight() error = %v", err)
	}

	after, err := m.Snapshot(state.GameID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	victim, _ := after.Player("ana")
	if victim.IsAlive {
		t.Fatal("night kill was not applied")
	}

	entries, err := log.List(ctx, state.GameID, journal.Query{PlayerID: "cy"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var found bool
	for _, logged := range entries {
		if logged.Content == "chose a victim" {
			found = true
			if logged.GameID != state.GameID {
				t.Fatalf("entry.GameID = %s, want %s", logged.GameID, state.GameID)
			}
		}
	}
	if !found {
		t.Fatal("handler journal entry was not appended")
	}
}
