package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// RawCharacter is one character record as decoded from an import file.
// Import sources disagree on key names, so normalization resolves each
// canonical field from an ordered list of source keys.
type RawCharacter map[string]any

// Field alias precedence: first non-empty source key wins. The orders mirror
// the historical import shapes, newest first.
var (
	idKeys        = []string{"id", "slug", "character_id"}
	nameKeys      = []string{"name", "character_name", "title"}
	abilityKeys   = []string{"ability_summary", "abilitySummary", "ability"}
	categoryKeys  = []string{"type", "category", "team"}
	alignmentKeys = []string{"alignment", "side"}
	timingKeys    = []string{"when", "timing"}
	targetKeys    = []string{"target", "target_shape", "selection"}
	publicKeys    = []string{"visibility_public", "public"}
	privateKeys   = []string{"private_to", "privateTo", "known_by"}
	precKeys      = []string{"precedence", "night_order", "order"}
)

// categoryAliases maps historical category spellings onto canonical types.
var categoryAliases = map[string]RoleType{
	"townsfolk": TypeTownsfolk,
	"town":      TypeTownsfolk,
	"villager":  TypeTownsfolk,
	"outsider":  TypeOutsider,
	"minion":    TypeMinion,
	"demon":     TypeDemon,
	"traveller": TypeTraveller,
	"traveler":  TypeTraveller,
	"fabled":    TypeFabled,
}

// BuildRoleDefinition normalizes one raw import record into the canonical
// shape. It returns nil with a warning when the record names a category this
// build does not support yet; scripts are allowed to reference future roles,
// so an unknown category is never an error. A record with no category at all
// defaults to townsfolk.
func BuildRoleDefinition(raw RawCharacter) (*RoleDefinition, []string) {
	var warnings []string

	charID := firstString(raw, idKeys)
	if charID == "" {
		return nil, append(warnings, "record has no id, skipped")
	}

	roleType := TypeTownsfolk
	if label := firstString(raw, categoryKeys); label != "" {
		resolved, ok := categoryAliases[strings.ToLower(strings.TrimSpace(label))]
		if !ok {
			return nil, append(warnings,
				fmt.Sprintf("character %q has unsupported category %q, skipped", charID, label))
		}
		roleType = resolved
	}

	name := firstString(raw, nameKeys)
	if name == "" {
		name = charID
	}

	alignment := defaultAlignment(roleType)
	if label := firstString(raw, alignmentKeys); label != "" {
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "good":
			alignment = AlignmentGood
		case "evil":
			alignment = AlignmentEvil
		default:
			warnings = append(warnings,
				fmt.Sprintf("character %q has unknown alignment %q, using %s", charID, label, alignment))
		}
	}

	timing := TimingPassive
	if label := firstString(raw, timingKeys); label != "" {
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "night":
			timing = TimingNight
		case "day":
			timing = TimingDay
		case "passive":
			timing = TimingPassive
		default:
			warnings = append(warnings,
				fmt.Sprintf("character %q has unknown timing %q, treating as passive", charID, label))
		}
	}

	target := TargetNone
	if label := firstString(raw, targetKeys); label != "" {
		target = TargetShape(strings.ToLower(strings.TrimSpace(label)))
	}

	visibility := Visibility{Public: VisibilityNone}
	if label := firstString(raw, publicKeys); label != "" {
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "none":
			visibility.Public = VisibilityNone
		case "partial":
			visibility.Public = VisibilityPartial
		case "full":
			visibility.Public = VisibilityFull
		default:
			warnings = append(warnings,
				fmt.Sprintf("character %q has unknown visibility %q, using none", charID, label))
		}
	}
	visibility.PrivateTo = firstStringSlice(raw, privateKeys)

	precedence := DefaultPrecedence(roleType)
	if value, ok := firstInt(raw, precKeys); ok {
		precedence = value
	}

	role := RoleDefinition{
		ID:        charID,
		Name:      name,
		Alignment: alignment,
		Type:      roleType,
		Ability: Ability{
			ID:     charID + "-ability",
			When:   timing,
			Target: target,
		},
		Visibility: visibility,
		Precedence: precedence,
	}
	if text := firstString(raw, abilityKeys); text != "" {
		role.Ability.Effects = []Effect{{Kind: EffectRulesText, RulesText: text}}
	}
	return &role, warnings
}

func defaultAlignment(t RoleType) Alignment {
	switch t {
	case TypeMinion, TypeDemon:
		return AlignmentEvil
	default:
		return AlignmentGood
	}
}

func firstString(raw RawCharacter, keys []string) string {
	for _, key := range keys {
		if value, ok := raw[key]; ok {
			if text, ok := value.(string); ok && strings.TrimSpace(text) != "" {
				return strings.TrimSpace(text)
			}
		}
	}
	return ""
}

func firstStringSlice(raw RawCharacter, keys []string) []string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		switch typed := value.(type) {
		case []string:
			if len(typed) > 0 {
				return append([]string{}, typed...)
			}
		case []any:
			var out []string
			for _, item := range typed {
				if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
					out = append(out, strings.TrimSpace(text))
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func firstInt(raw RawCharacter, keys []string) (int, bool) {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		switch typed := value.(type) {
		case int:
			return typed, true
		case float64:
			return int(typed), true
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(typed)); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}
