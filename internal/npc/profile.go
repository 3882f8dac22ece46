// Package npc holds behavioral profiles for AI-controlled seats and the
// registry the referee resolves them from.
package npc

import (
	"fmt"
	"sort"
	"sync"

	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
)

// Personality tunes how an NPC reads the table. All scores are in [0, 1].
type Personality struct {
	Aggression float64 `json:"aggression"`
	Caution    float64 `json:"caution"`
	Deception  float64 `json:"deception"`
	Chattiness float64 `json:"chattiness"`
	Credulity  float64 `json:"credulity"`
}

// ClaimPolicy controls what an NPC says about its own character.
type ClaimPolicy string

const (
	ClaimTruthful ClaimPolicy = "truthful"
	ClaimWithhold ClaimPolicy = "withhold"
	ClaimBluff    ClaimPolicy = "bluff"
)

// Behavior holds the decision thresholds an NPC plays by.
type Behavior struct {
	ClaimPolicy ClaimPolicy `json:"claim_policy"`
	// VoteThreshold is the suspicion score at which the NPC votes to
	// execute a nominee.
	VoteThreshold float64 `json:"vote_threshold"`
	// NominationThreshold is the suspicion score at which the NPC
	// nominates on its own.
	NominationThreshold float64 `json:"nomination_threshold"`
}

// Profile is one complete NPC behavioral profile.
type Profile struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Archetype   string      `json:"archetype"`
	Personality Personality `json:"personality"`
	Behavior    Behavior    `json:"behavior"`
}

// Extension overrides parts of a base profile. Nil fields keep the
// base value.
type Extension struct {
	Archetype   string
	Personality *Personality
	Behavior    *Behavior
}

// Compose builds a profile from a base and an optional extension. The
// base is never mutated; composition happens once, at construction.
func Compose(base Profile, ext *Extension) Profile {
	out := base
	if ext == nil {
		return out
	}
	if ext.Archetype != "" {
		out.Archetype = ext.Archetype
	}
	if ext.Personality != nil {
		out.Personality = *ext.Personality
	}
	if ext.Behavior != nil {
		out.Behavior = *ext.Behavior
	}
	return out
}

// BehaviorUpdate patches individual behavior fields. Nil fields are
// left untouched.
type BehaviorUpdate struct {
	ClaimPolicy         *ClaimPolicy
	VoteThreshold       *float64
	NominationThreshold *float64
}

// Registry holds the profiles available to a referee process.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewRegistry returns a registry seeded with the given profiles.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a profile.
func (r *Registry) Add(p Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; ok {
		return fmt.Errorf("profile %s already registered", p.ID)
	}
	r.profiles[p.ID] = p
	return nil
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, grimerrors.WithMetadata(grimerrors.CodeProfileNotFound, "npc profile not found", map[string]string{
			"profile_id": id,
		})
	}
	return p, nil
}

// List returns every profile ordered by id.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateBehavior patches a profile's behavior and returns the result.
func (r *Registry) UpdateBehavior(id string, update BehaviorUpdate) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, grimerrors.WithMetadata(grimerrors.CodeProfileNotFound, "npc profile not found", map[string]string{
			"profile_id": id,
		})
	}

	if update.ClaimPolicy != nil {
		p.Behavior.ClaimPolicy = *update.ClaimPolicy
	}
	if update.VoteThreshold != nil {
		p.Behavior.VoteThreshold = *update.VoteThreshold
	}
	if update.NominationThreshold != nil {
		p.Behavior.NominationThreshold = *update.NominationThreshold
	}
	r.profiles[id] = p
	return p, nil
}

// DefaultProfiles returns the stock archetypes a referee ships with.
func DefaultProfiles() []Profile {
	base := Profile{
		Behavior: Behavior{
			ClaimPolicy:         ClaimTruthful,
			VoteThreshold:       0.6,
			NominationThreshold: 0.75,
		},
	}

	villager := Compose(base, &Extension{
		Archetype: "villager",
		Personality: &Personality{
			Aggression: 0.3, Caution: 0.6, Deception: 0.1, Chattiness: 0.5, Credulity: 0.7,
		},
	})
	villager.ID = "villager"
	villager.Name = "Earnest Villager"

	skeptic := Compose(base, &Extension{
		Archetype: "skeptic",
		Personality: &Personality{
			Aggression: 0.5, Caution: 0.8, Deception: 0.2, Chattiness: 0.4, Credulity: 0.2,
		},
		Behavior: &Behavior{
			ClaimPolicy:         ClaimWithhold,
			VoteThreshold:       0.8,
			NominationThreshold: 0.9,
		},
	})
	skeptic.ID = "skeptic"
	skeptic.Name = "Wary Skeptic"

	schemer := Compose(base, &Extension{
		Archetype: "schemer",
		Personality: &Personality{
			Aggression: 0.7, Caution: 0.4, Deception: 0.9, Chattiness: 0.8, Credulity: 0.3,
		},
		Behavior: &Behavior{
			ClaimPolicy:         ClaimBluff,
			VoteThreshold:       0.4,
			NominationThreshold: 0.5,
		},
	})
	schemer.ID = "schemer"
	schemer.Name = "Silver-Tongued Schemer"

	return []Profile{villager, skeptic, schemer}
}
