package catalog

import (
	"fmt"
	"sort"

	"github.com/louisbranch/grimoire/internal/platform/errors"
)

// Catalog is the validated, insertion-ordered set of characters and scripts.
type Catalog struct {
	roles   []RoleDefinition
	index   map[string]int
	scripts map[string]Script
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		index:   make(map[string]int),
		scripts: make(map[string]Script),
	}
}

// AddRole appends a character in catalog order.
func (c *Catalog) AddRole(role RoleDefinition) error {
	if role.ID == "" {
		return fmt.Errorf("role id is required")
	}
	if _, ok := c.index[role.ID]; ok {
		return errors.WithMetadata(errors.CodeDuplicateCharacter,
			fmt.Sprintf("character %s already in catalog", role.ID),
			map[string]string{"character_id": role.ID})
	}
	if role.Precedence == 0 {
		role.Precedence = DefaultPrecedence(role.Type)
	}
	c.index[role.ID] = len(c.roles)
	c.roles = append(c.roles, role)
	return nil
}

// AddScript registers a script. Role references are checked at Validate time,
// not here, because scripts may defensively reference future characters.
func (c *Catalog) AddScript(script Script) error {
	if script.ID == "" {
		return fmt.Errorf("script id is required")
	}
	if _, ok := c.scripts[script.ID]; ok {
		return errors.WithMetadata(errors.CodeScriptDuplicateRole,
			fmt.Sprintf("script %s already in catalog", script.ID),
			map[string]string{"script_id": script.ID})
	}
	c.scripts[script.ID] = script
	return nil
}

// Role returns the character with the given id.
func (c *Catalog) Role(id string) (RoleDefinition, bool) {
	idx, ok := c.index[id]
	if !ok {
		return RoleDefinition{}, false
	}
	return c.roles[idx], true
}

// RoleIndex returns a character's stable catalog position, used to break
// precedence ties deterministically.
func (c *Catalog) RoleIndex(id string) (int, bool) {
	idx, ok := c.index[id]
	return idx, ok
}

// Roles returns every character in catalog insertion order.
func (c *Catalog) Roles() []RoleDefinition {
	out := make([]RoleDefinition, len(c.roles))
	copy(out, c.roles)
	return out
}

// Scripts returns every script sorted by id.
func (c *Catalog) Scripts() []Script {
	ids := make([]string, 0, len(c.scripts))
	for id := range c.scripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Script, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.scripts[id])
	}
	return out
}

// Resolve returns the script with the given id.
func (c *Catalog) Resolve(scriptID string) (Script, error) {
	script, ok := c.scripts[scriptID]
	if !ok {
		return Script{}, errors.WithMetadata(errors.CodeScriptNotFound,
			fmt.Sprintf("script %s not found", scriptID),
			map[string]string{"script_id": scriptID})
	}
	return script, nil
}

// Validation is the outcome of checking a script against the catalog.
type Validation struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// Validate checks a script's internal consistency and its references
// against the catalog.
func (c *Catalog) Validate(script Script) Validation {
	var result Validation

	seen := make(map[string]bool)
	for _, role := range script.Roles {
		if seen[role.ID] {
			result.Errors = append(result.Errors,
				fmt.Sprintf("duplicate role id %q", role.ID))
			continue
		}
		seen[role.ID] = true

		if _, ok := c.index[role.ID]; !ok {
			result.Errors = append(result.Errors,
				fmt.Sprintf("role %q not in catalog", role.ID))
		}

		// Night results are private disclosures; a fully public night
		// ability almost always means bad import data.
		if role.Ability.When == TimingNight && role.Visibility.Public == VisibilityFull {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("role %q has a night ability with full public visibility", role.ID))
		}
		if role.Ability.When == TimingPassive && len(role.Visibility.PrivateTo) > 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("role %q is passive but names private recipients", role.ID))
		}
	}

	bounds := script.Setup.PlayerCount
	if bounds.Min <= 0 || bounds.Max < bounds.Min {
		result.Errors = append(result.Errors,
			fmt.Sprintf("player bounds [%d,%d] are invalid", bounds.Min, bounds.Max))
	} else if total := script.Setup.Distribution.Total(); total < bounds.Min || total > bounds.Max {
		result.Errors = append(result.Errors,
			fmt.Sprintf("distribution fills %d seats, outside [%d,%d]", total, bounds.Min, bounds.Max))
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
