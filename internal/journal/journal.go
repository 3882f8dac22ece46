// Package journal is the append-only audit log of one game: storyteller
// disclosures, player notes, and the derived suspicion/trust graph.
//
// Entries are immutable once appended. Corrections are new entries, never
// edits, so the full trail survives for the end-of-game audit view.
package journal

import (
	"context"
	"time"
)

// EntryType classifies a journal entry and implies its visibility:
// claims and observations are storyteller-facing disclosures, while
// suspicion and analysis entries stay private to the authoring player
// unless explicitly shared.
type EntryType string

const (
	TypeClaim       EntryType = "claim"
	TypeObservation EntryType = "observation"
	TypeDecision    EntryType = "decision"
	TypeSuspicion   EntryType = "suspicion"
	TypeAnalysis    EntryType = "analysis"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case TypeClaim, TypeObservation, TypeDecision, TypeSuspicion, TypeAnalysis:
		return true
	}
	return false
}

// Entry is one immutable journal record.
type Entry struct {
	ID       string
	Seq      uint64
	GameID   string
	PlayerID string
	Type     EntryType
	Content  string
	Metadata map[string]string
	// Timestamp is stamped server-side at append time.
	Timestamp time.Time
}

// Query narrows a List call. Zero values mean "no restriction".
// AfterSeq makes the listing restartable: resume from the last seq seen.
type Query struct {
	PlayerID string
	Type     EntryType
	AfterSeq uint64
	Limit    int
}

// Store is the append-only journal contract.
type Store interface {
	// Append stamps and stores a new entry. The input's ID, Seq, and
	// Timestamp are assigned by the store; appending the same payload
	// twice yields two distinct entries.
	Append(ctx context.Context, entry Entry) (Entry, error)
	// List returns entries for a game ordered by timestamp ascending,
	// then seq, filtered by the query.
	List(ctx context.Context, gameID string, query Query) ([]Entry, error)
}

// decisionTypes are the entry types that make up a player's decision history.
var decisionTypes = []EntryType{TypeDecision, TypeClaim, TypeAnalysis}

// DecisionHistory returns only decision, claim, and analysis entries
// authored by the given player, in journal order.
func DecisionHistory(ctx context.Context, store Store, gameID, playerID string) ([]Entry, error) {
	all, err := store.List(ctx, gameID, Query{PlayerID: playerID})
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, entry := range all {
		for _, t := range decisionTypes {
			if entry.Type == t {
				out = append(out, entry)
				break
			}
		}
	}
	return out, nil
}
