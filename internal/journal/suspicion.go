package journal

import "sort"

// MetadataSubject is the metadata key a suspicion entry uses to name the
// player the suspicion is about.
const MetadataSubject = "subject"

// Opinion is one player's current read on another, as tracked by the
// referee's game state. Scores are in [0, 1].
type Opinion struct {
	From      string
	About     string
	Suspicion float64
	Trust     float64
}

// Edge is a directed edge in the suspicion network: how From currently
// feels about To, plus how many journal entries back that feeling up.
type Edge struct {
	From      string
	To        string
	Suspicion float64
	Trust     float64
	// Entries counts the suspicion-typed journal entries From has
	// written about To.
	Entries int
}

// Network is the per-game suspicion/trust graph. Edges are sorted by
// (From, To) so serialization is stable.
type Network struct {
	GameID string
	Edges  []Edge
}

// BuildNetwork derives the suspicion network for a game from tracked
// opinions and the journal's suspicion entries. An edge exists when
// either source mentions the pair.
func BuildNetwork(gameID string, opinions []Opinion, entries []Entry) Network {
	type key struct{ from, to string }
	edges := make(map[key]*Edge)

	edge := func(from, to string) *Edge {
		k := key{from, to}
		e, ok := edges[k]
		if !ok {
			e = &Edge{From: from, To: to}
			edges[k] = e
		}
		return e
	}

	for _, op := range opinions {
		if op.From == "" || op.About == "" || op.From == op.About {
			continue
		}
		e := edge(op.From, op.About)
		e.Suspicion = op.Suspicion
		e.Trust = op.Trust
	}

	for _, entry := range entries {
		if entry.Type != TypeSuspicion {
			continue
		}
		subject := entry.Metadata[MetadataSubject]
		if subject == "" || subject == entry.PlayerID {
			continue
		}
		edge(entry.PlayerID, subject).Entries++
	}

	out := Network{GameID: gameID, Edges: make([]Edge, 0, len(edges))}
	for _, e := range edges {
		out.Edges = append(out.Edges, *e)
	}
	sort.Slice(out.Edges, func(i, j int) bool {
		if out.Edges[i].From != out.Edges[j].From {
			return out.Edges[i].From < out.Edges[j].From
		}
		return out.Edges[i].To < out.Edges[j].To
	})
	return out
}
