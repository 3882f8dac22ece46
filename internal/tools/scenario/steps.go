package scenario

import (
	"context"
	"fmt"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
)

func (r *Runner) runStep(ctx context.Context, step Step) error {
	switch step.Kind {
	case "game":
		return r.stepGame(ctx, step.Args)
	case "player":
		return r.stepPlayer(ctx, step.Args)
	case "start":
		return r.machine.Start(ctx, r.gameID)
	case "assign":
		return r.stepAssign(ctx, step.Args)
	case "night":
		selections, err := selectionsArg(step.Args)
		if err != nil {
			return err
		}
		return r.machine.BeginNight(ctx, r.gameID, selections)
	case "day":
		selections, err := selectionsArg(step.Args)
		if err != nil {
			return err
		}
		return r.machine.BeginDay(ctx, r.gameID, selections)
	case "nominate":
		return r.machine.Nominate(ctx, r.gameID, stringField(step.Args, "by"), stringField(step.Args, "nominee"))
	case "vote":
		return r.stepVote(ctx, step.Args)
	case "close_vote":
		executed, err := r.machine.CloseVote(ctx, r.gameID)
		if err != nil {
			return err
		}
		r.logf("vote closed, executed=%v", executed)
		return nil
	case "claim":
		return r.machine.AddClaim(ctx, r.gameID, stringField(step.Args, "player"), stringField(step.Args, "text"))
	case "suspect":
		return r.stepSuspect(ctx, step.Args)
	case "expect_phase":
		return r.stepExpectPhase(step.Args)
	case "expect_alive":
		return r.stepExpectAlive(step.Args)
	case "expect_winner":
		return r.stepExpectWinner(step.Args)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) stepGame(ctx context.Context, args map[string]any) error {
	state, err := r.machine.CreateGame(ctx, stringField(args, "script"))
	if err != nil {
		return err
	}
	r.gameID = state.GameID
	r.logf("created game %s", r.gameID)
	return nil
}

func (r *Runner) stepPlayer(ctx context.Context, args map[string]any) error {
	seat, ok := intField(args, "seat")
	if !ok {
		return fmt.Errorf("player seat is required")
	}
	return r.machine.AddPlayer(ctx, r.gameID,
		stringField(args, "id"), stringField(args, "name"), seat, stringField(args, "npc"))
}

func (r *Runner) stepAssign(ctx context.Context, args map[string]any) error {
	assignments := make(map[string]string, len(args))
	for playerID, value := range args {
		roleID, ok := value.(string)
		if !ok {
			return fmt.Errorf("assignment for %q must be a role id", playerID)
		}
		assignments[playerID] = roleID
	}
	return r.machine.AssignRoles(ctx, r.gameID, assignments)
}

func (r *Runner) stepVote(ctx context.Context, args map[string]any) error {
	voters, ok := args["voters"].([]any)
	if !ok {
		return fmt.Errorf("vote needs a list of voters")
	}
	for _, value := range voters {
		voter, ok := value.(string)
		if !ok {
			return fmt.Errorf("voter must be a player id, got %T", value)
		}
		if err := r.machine.CastVote(ctx, r.gameID, voter); err != nil {
			return fmt.Errorf("voter %s: %w", voter, err)
		}
	}
	return nil
}

func (r *Runner) stepSuspect(ctx context.Context, args map[string]any) error {
	update := game.OpinionUpdate{
		From:  stringField(args, "from"),
		About: stringField(args, "about"),
	}
	if value, ok := floatField(args, "suspicion"); ok {
		update.Suspicion = &value
	}
	if value, ok := floatField(args, "trust"); ok {
		update.Trust = &value
	}
	return r.machine.RecordOpinion(ctx, r.gameID, update, stringField(args, "note"))
}

func (r *Runner) stepExpectPhase(args map[string]any) error {
	state, err := r.machine.Snapshot(r.gameID)
	if err != nil {
		return err
	}
	want := game.Phase(stringField(args, "phase"))
	if state.Phase != want {
		return fmt.Errorf("phase = %s, want %s", state.Phase, want)
	}
	return nil
}

func (r *Runner) stepExpectAlive(args map[string]any) error {
	state, err := r.machine.Snapshot(r.gameID)
	if err != nil {
		return err
	}
	playerID := stringField(args, "player")
	player, ok := state.Player(playerID)
	if !ok {
		return fmt.Errorf("player %q not in game", playerID)
	}
	want, _ := args["alive"].(bool)
	if player.IsAlive != want {
		return fmt.Errorf("player %s alive = %v, want %v", playerID, player.IsAlive, want)
	}
	return nil
}

func (r *Runner) stepExpectWinner(args map[string]any) error {
	state, err := r.machine.Snapshot(r.gameID)
	if err != nil {
		return err
	}
	if state.Phase != game.PhaseEnd {
		return fmt.Errorf("phase = %s, want %s", state.Phase, game.PhaseEnd)
	}
	want := catalog.Alignment(stringField(args, "winner"))
	if state.Winner != want {
		return fmt.Errorf("winner = %s, want %s", state.Winner, want)
	}
	return nil
}

// selectionsArg converts a step's role -> targets table into machine
// selections. A single player id and a list of ids are both accepted.
func selectionsArg(args map[string]any) (map[string]game.Target, error) {
	if len(args) == 0 {
		return nil, nil
	}
	selections := make(map[string]game.Target, len(args))
	for roleID, value := range args {
		switch v := value.(type) {
		case string:
			selections[roleID] = game.Target{PlayerIDs: []string{v}}
		case []any:
			ids := make([]string, 0, len(v))
			for _, item := range v {
				id, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("target for %q must be a player id, got %T", roleID, item)
				}
				ids = append(ids, id)
			}
			selections[roleID] = game.Target{PlayerIDs: ids}
		default:
			return nil, fmt.Errorf("targets for %q must be a player id or a list", roleID)
		}
	}
	return selections, nil
}

func intField(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

func floatField(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
