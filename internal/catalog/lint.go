package catalog

import (
	"fmt"
	"sort"
)

// Violation is one linter finding, printable as a single line.
type Violation struct {
	ScriptID    string
	CharacterID string
	Message     string
}

// String renders the violation as one report line.
func (v Violation) String() string {
	switch {
	case v.ScriptID != "" && v.CharacterID != "":
		return fmt.Sprintf("script %s: character %s: %s", v.ScriptID, v.CharacterID, v.Message)
	case v.ScriptID != "":
		return fmt.Sprintf("script %s: %s", v.ScriptID, v.Message)
	case v.CharacterID != "":
		return fmt.Sprintf("character %s: %s", v.CharacterID, v.Message)
	default:
		return v.Message
	}
}

// Lint checks the whole catalog for referential integrity: every character a
// script references must exist, and no two catalog entries may share an id.
// AddRole already rejects duplicates within one catalog instance, so the
// duplicate check here guards records collected across multiple import files.
func Lint(c *Catalog, extraIDs []string) []Violation {
	var violations []Violation

	seen := make(map[string]int)
	for _, role := range c.Roles() {
		seen[role.ID]++
	}
	for _, id := range extraIDs {
		seen[id]++
	}
	dupes := make([]string, 0)
	for id, count := range seen {
		if count > 1 {
			dupes = append(dupes, id)
		}
	}
	sort.Strings(dupes)
	for _, id := range dupes {
		violations = append(violations, Violation{
			CharacterID: id,
			Message:     fmt.Sprintf("defined %d times", seen[id]),
		})
	}

	for _, script := range c.Scripts() {
		validation := c.Validate(script)
		for _, message := range validation.Errors {
			violations = append(violations, Violation{
				ScriptID: script.ID,
				Message:  message,
			})
		}
	}

	return violations
}
