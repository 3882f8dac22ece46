// Package catalog holds the canonical character and script data model.
//
// A Catalog is built once by the importer and read-only afterwards. It is an
// explicit object passed into the phase machine and action registry
// constructors; there is no process-wide singleton.
package catalog

// Alignment describes which team a character plays for.
type Alignment string

const (
	AlignmentGood Alignment = "good"
	AlignmentEvil Alignment = "evil"
)

// RoleType classifies a character within a script.
type RoleType string

const (
	TypeTownsfolk RoleType = "townsfolk"
	TypeOutsider  RoleType = "outsider"
	TypeMinion    RoleType = "minion"
	TypeDemon     RoleType = "demon"
	TypeTraveller RoleType = "traveller"
	TypeFabled    RoleType = "fabled"
)

// precedenceBands maps each role type to its default resolution band.
// Lower values fire first within a phase.
var precedenceBands = map[RoleType]int{
	TypeTownsfolk: 100,
	TypeOutsider:  200,
	TypeMinion:    300,
	TypeDemon:     400,
	TypeTraveller: 500,
	TypeFabled:    600,
}

// DefaultPrecedence returns the resolution band for a role type.
// Unknown types sort last.
func DefaultPrecedence(t RoleType) int {
	if band, ok := precedenceBands[t]; ok {
		return band
	}
	return 700
}

// Timing describes when an ability fires.
type Timing string

const (
	TimingNight   Timing = "night"
	TimingDay     Timing = "day"
	TimingPassive Timing = "passive"
)

// TargetShape describes the selection an ability requires.
type TargetShape string

const (
	TargetNone       TargetShape = "none"
	TargetAny        TargetShape = "any"
	TargetSelf       TargetShape = "self"
	TargetTwoPlayers TargetShape = "two-players"
)

// EffectKind tags one entry in an ability's effect list.
type EffectKind string

// EffectRulesText is the only effect kind compiled today: untranslated
// ability prose carried as an opaque payload. Richer kinds are additive.
const EffectRulesText EffectKind = "rules_text"

// Effect is one tagged effect descriptor.
type Effect struct {
	Kind      EffectKind
	RulesText string
}

// VisibilityLevel describes what non-recipients learn when an ability fires.
type VisibilityLevel string

const (
	VisibilityNone    VisibilityLevel = "none"
	VisibilityPartial VisibilityLevel = "partial"
	VisibilityFull    VisibilityLevel = "full"
)

// Visibility controls who is entitled to an ability's result.
type Visibility struct {
	Public VisibilityLevel
	// PrivateTo lists role ids or categories entitled to the private result.
	PrivateTo []string
}

// Ability is the timing, targeting, and effect payload of one character.
type Ability struct {
	ID      string
	When    Timing
	Target  TargetShape
	Effects []Effect
}

// RoleDefinition is the canonical data for one character.
type RoleDefinition struct {
	ID         string
	Name       string
	Alignment  Alignment
	Type       RoleType
	Ability    Ability
	Visibility Visibility
	// Precedence orders same-phase ability resolution, lower first.
	// Defaults to the type band unless the import data overrides it.
	Precedence int
}

// RulesText returns the concatenated rules_text payload of the ability.
func (r RoleDefinition) RulesText() string {
	for _, effect := range r.Ability.Effects {
		if effect.Kind == EffectRulesText {
			return effect.RulesText
		}
	}
	return ""
}
