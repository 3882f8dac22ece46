package catalogimporter

import (
	"github.com/louisbranch/grimoire/internal/catalog"
)

// Document is one import file: a set of character records plus the
// scripts that arrange them.
type Document struct {
	Characters []catalog.RawCharacter `json:"characters"`
	Scripts    []ScriptPayload        `json:"scripts"`
}

// ScriptPayload is one script as written in an import file. Roles are
// referenced by id; resolution against the character records happens
// during catalog assembly.
type ScriptPayload struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	MinPlayers   int            `json:"min_players"`
	MaxPlayers   int            `json:"max_players"`
	Distribution map[string]int `json:"distribution"`
	Roles        []string       `json:"roles"`
}
