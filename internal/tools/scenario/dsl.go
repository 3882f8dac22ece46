// Package scenario loads Lua game scripts and replays them against an
// in-process referee, for regression testing full games end to end.
package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is a named sequence of steps parsed from a Lua file.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one scripted action or assertion.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile parses a Lua scenario script. The script must end
// with `return scene` where scene was built via Scenario.new.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerScenarioType(state)
	registerScenarioConstructor(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "game", Function: scenarioGame},
	{Name: "player", Function: scenarioPlayer},
	{Name: "start", Function: scenarioStart},
	{Name: "assign", Function: scenarioAssign},
	{Name: "night", Function: scenarioNight},
	{Name: "day", Function: scenarioDay},
	{Name: "nominate", Function: scenarioNominate},
	{Name: "vote", Function: scenarioVote},
	{Name: "close_vote", Function: scenarioCloseVote},
	{Name: "claim", Function: scenarioClaim},
	{Name: "suspect", Function: scenarioSuspect},
	{Name: "expect_phase", Function: scenarioExpectPhase},
	{Name: "expect_alive", Function: scenarioExpectAlive},
	{Name: "expect_dead", Function: scenarioExpectDead},
	{Name: "expect_winner", Function: scenarioExpectWinner},
}

func scenarioGame(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if stringField(data, "script") == "" {
		lua.Errorf(state, "game script is required")
	}
	appendStep(scenario, "game", data)
	return chain(state)
}

func scenarioPlayer(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if stringField(data, "id") == "" {
		lua.Errorf(state, "player id is required")
	}
	if _, ok := data["seat"].(int); !ok {
		lua.Errorf(state, "player seat is required")
	}
	if stringField(data, "name") == "" {
		data["name"] = data["id"]
	}
	appendStep(scenario, "player", data)
	return chain(state)
}

func scenarioStart(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "start", nil)
	return chain(state)
}

func scenarioAssign(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if len(data) == 0 {
		lua.Errorf(state, "assign needs at least one player to role mapping")
	}
	appendStep(scenario, "assign", data)
	return chain(state)
}

func scenarioNight(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "night", optionalTable(state, 2))
	return chain(state)
}

func scenarioDay(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "day", optionalTable(state, 2))
	return chain(state)
}

func scenarioNominate(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if stringField(data, "by") == "" {
		lua.Errorf(state, "nominate by is required")
	}
	if stringField(data, "nominee") == "" {
		lua.Errorf(state, "nominate nominee is required")
	}
	appendStep(scenario, "nominate", data)
	return chain(state)
}

func scenarioVote(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	voters, ok := tableToGo(state, 2).([]any)
	if !ok || len(voters) == 0 {
		lua.Errorf(state, "vote needs a list of voters")
	}
	appendStep(scenario, "vote", map[string]any{"voters": voters})
	return chain(state)
}

func scenarioCloseVote(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "close_vote", nil)
	return chain(state)
}

func scenarioClaim(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if stringField(data, "player") == "" {
		lua.Errorf(state, "claim player is required")
	}
	if stringField(data, "text") == "" {
		lua.Errorf(state, "claim text is required")
	}
	appendStep(scenario, "claim", data)
	return chain(state)
}

func scenarioSuspect(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if stringField(data, "from") == "" {
		lua.Errorf(state, "suspect from is required")
	}
	if stringField(data, "about") == "" {
		lua.Errorf(state, "suspect about is required")
	}
	appendStep(scenario, "suspect", data)
	return chain(state)
}

func scenarioExpectPhase(state *lua.State) int {
	scenario := checkScenario(state)
	phase := lua.CheckString(state, 2)
	appendStep(scenario, "expect_phase", map[string]any{"phase": phase})
	return chain(state)
}

func scenarioExpectAlive(state *lua.State) int {
	scenario := checkScenario(state)
	player := lua.CheckString(state, 2)
	appendStep(scenario, "expect_alive", map[string]any{"player": player, "alive": true})
	return chain(state)
}

func scenarioExpectDead(state *lua.State) int {
	scenario := checkScenario(state)
	player := lua.CheckString(state, 2)
	appendStep(scenario, "expect_alive", map[string]any{"player": player, "alive": false})
	return chain(state)
}

func scenarioExpectWinner(state *lua.State) int {
	scenario := checkScenario(state)
	winner := lua.CheckString(state, 2)
	appendStep(scenario, "expect_winner", map[string]any{"winner": winner})
	return chain(state)
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

// chain leaves the scenario userdata on the stack so calls compose:
// scene:player({...}):claim({...}).
func chain(state *lua.State) int {
	state.PushValue(1)
	return 1
}

func appendStep(scenario *Scenario, kind string, data map[string]any) {
	if scenario == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}

func stringField(data map[string]any, key string) string {
	value, _ := data[key].(string)
	return value
}
