package catalog

import "testing"

func TestBuildRoleDefinitionAbilityAliases(t *testing.T) {
	// Any historical key for the ability summary must normalize identically.
	tests := []struct {
		name string
		raw  RawCharacter
	}{
		{name: "snake case", raw: RawCharacter{"id": "seer", "ability_summary": "Learns one player's alignment each night."}},
		{name: "camel case", raw: RawCharacter{"id": "seer", "abilitySummary": "Learns one player's alignment each night."}},
		{name: "bare", raw: RawCharacter{"id": "seer", "ability": "Learns one player's alignment each night."}},
	}

	var want *RoleDefinition
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, warnings := BuildRoleDefinition(tt.raw)
			if role == nil {
				t.Fatalf("expected role, got nil (warnings: %v)", warnings)
			}
			if want == nil {
				want = role
				return
			}
			if role.RulesText() != want.RulesText() {
				t.Fatalf("rules text = %q, want %q", role.RulesText(), want.RulesText())
			}
			if role.ID != want.ID || role.Type != want.Type || role.Precedence != want.Precedence {
				t.Fatalf("role = %+v, want %+v", role, want)
			}
		})
	}
}

func TestBuildRoleDefinitionAliasPrecedence(t *testing.T) {
	// The newest key wins when several variants are present.
	role, _ := BuildRoleDefinition(RawCharacter{
		"id":              "monk",
		"ability_summary": "canonical",
		"ability":         "legacy",
	})
	if role == nil {
		t.Fatal("expected role")
	}
	if role.RulesText() != "canonical" {
		t.Fatalf("rules text = %q, want %q", role.RulesText(), "canonical")
	}
}

func TestBuildRoleDefinitionDefaultsCategoryToTownsfolk(t *testing.T) {
	role, warnings := BuildRoleDefinition(RawCharacter{"id": "librarian"})
	if role == nil {
		t.Fatalf("expected role (warnings: %v)", warnings)
	}
	if role.Type != TypeTownsfolk {
		t.Fatalf("type = %s, want %s", role.Type, TypeTownsfolk)
	}
	if role.Alignment != AlignmentGood {
		t.Fatalf("alignment = %s, want %s", role.Alignment, AlignmentGood)
	}
	if role.Precedence != 100 {
		t.Fatalf("precedence = %d, want %d", role.Precedence, 100)
	}
}

func TestBuildRoleDefinitionSkipsUnsupportedCategory(t *testing.T) {
	role, warnings := BuildRoleDefinition(RawCharacter{"id": "djinn", "type": "homunculus"})
	if role != nil {
		t.Fatalf("expected skip, got %+v", role)
	}
	if len(warnings) == 0 {
		t.Fatal("expected a warning for the skipped record")
	}
}

func TestBuildRoleDefinitionCategoryAliases(t *testing.T) {
	tests := []struct {
		label string
		want  RoleType
	}{
		{"townsfolk", TypeTownsfolk},
		{"villager", TypeTownsfolk},
		{"Traveler", TypeTraveller},
		{"traveller", TypeTraveller},
		{"DEMON", TypeDemon},
		{"minion", TypeMinion},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			role, _ := BuildRoleDefinition(RawCharacter{"id": "x", "category": tt.label})
			if role == nil {
				t.Fatal("expected role")
			}
			if role.Type != tt.want {
				t.Fatalf("type = %s, want %s", role.Type, tt.want)
			}
		})
	}
}

func TestBuildRoleDefinitionEvilDefaults(t *testing.T) {
	role, _ := BuildRoleDefinition(RawCharacter{"id": "imp", "type": "demon"})
	if role == nil {
		t.Fatal("expected role")
	}
	if role.Alignment != AlignmentEvil {
		t.Fatalf("alignment = %s, want %s", role.Alignment, AlignmentEvil)
	}
	if role.Precedence != 400 {
		t.Fatalf("precedence = %d, want %d", role.Precedence, 400)
	}
}

func TestBuildRoleDefinitionPrecedenceOverride(t *testing.T) {
	role, _ := BuildRoleDefinition(RawCharacter{"id": "sage", "type": "townsfolk", "precedence": float64(42)})
	if role == nil {
		t.Fatal("expected role")
	}
	if role.Precedence != 42 {
		t.Fatalf("precedence = %d, want %d", role.Precedence, 42)
	}
}

func TestBuildRoleDefinitionMissingID(t *testing.T) {
	role, warnings := BuildRoleDefinition(RawCharacter{"name": "Nameless"})
	if role != nil {
		t.Fatal("expected nil role for missing id")
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want %d", len(warnings), 1)
	}
}
