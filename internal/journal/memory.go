package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
	"github.com/louisbranch/grimoire/internal/platform/id"
)

// MemoryStore is an in-memory journal used by the referee while a game is
// live and by tests. Entries are copied on the way in and out.
type MemoryStore struct {
	mu      sync.Mutex
	byGame  map[string][]Entry
	nextSeq map[string]uint64

	// now and newID are swappable for tests.
	now   func() time.Time
	newID func() string
}

// NewMemoryStore returns an empty in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byGame:  make(map[string][]Entry),
		nextSeq: make(map[string]uint64),
		now:     time.Now,
		newID:   id.MustNewID,
	}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, entry Entry) (Entry, error) {
	if err := validateEntry(entry); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq[entry.GameID]++
	entry.Seq = s.nextSeq[entry.GameID]
	entry.ID = s.newID()
	entry.Timestamp = s.now().UTC()
	if entry.Metadata != nil {
		entry.Metadata = copyMetadata(entry.Metadata)
	}

	s.byGame[entry.GameID] = append(s.byGame[entry.GameID], entry)
	return entry, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, gameID string, query Query) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for _, entry := range s.byGame[gameID] {
		if !matchQuery(entry, query) {
			continue
		}
		entry.Metadata = copyMetadata(entry.Metadata)
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})

	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func matchQuery(entry Entry, query Query) bool {
	if query.PlayerID != "" && entry.PlayerID != query.PlayerID {
		return false
	}
	if query.Type != "" && entry.Type != query.Type {
		return false
	}
	if query.AfterSeq > 0 && entry.Seq <= query.AfterSeq {
		return false
	}
	return true
}

func validateEntry(entry Entry) error {
	if entry.GameID == "" {
		return grimerrors.New(grimerrors.CodeJournalEntryInvalid, "journal entry missing game id")
	}
	if entry.PlayerID == "" {
		return grimerrors.New(grimerrors.CodeJournalEntryInvalid, "journal entry missing player id")
	}
	if !entry.Type.Valid() {
		return grimerrors.WithMetadata(grimerrors.CodeJournalEntryInvalid, "unknown journal entry type", map[string]string{
			"type": string(entry.Type),
		})
	}
	if entry.Content == "" {
		return grimerrors.New(grimerrors.CodeJournalEntryInvalid, "journal entry missing content")
	}
	return nil
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
