package catalog

// PlayerBounds is the supported seated player count range for a script.
type PlayerBounds struct {
	Min int
	Max int
}

// Distribution counts seats per role type for the current player count.
type Distribution map[RoleType]int

// Total returns the number of seats the distribution fills.
func (d Distribution) Total() int {
	sum := 0
	for _, count := range d {
		sum += count
	}
	return sum
}

// Setup carries a script's player-count and role-distribution rules.
type Setup struct {
	PlayerCount  PlayerBounds
	Distribution Distribution
}

// Script is a named, versioned set of characters playable together.
// Roles keep their import order; that order breaks precedence ties.
type Script struct {
	ID      string
	Name    string
	Version string
	Roles   []RoleDefinition
	Setup   Setup
}

// Role returns the script's role with the given id.
func (s Script) Role(id string) (RoleDefinition, bool) {
	for _, role := range s.Roles {
		if role.ID == id {
			return role, true
		}
	}
	return RoleDefinition{}, false
}

// SupportsPlayerCount reports whether count seats fit the script's bounds.
func (s Script) SupportsPlayerCount(count int) bool {
	return count >= s.Setup.PlayerCount.Min && count <= s.Setup.PlayerCount.Max
}
