package journal

import (
	"testing"

	grimerrors "github.com/louisbranch/grimoire/internal/platform/errors"
)

func TestParseFilterEmpty(t *testing.T) {
	cond, err := ParseFilter("  ")
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	if cond.Clause != "" || len(cond.Params) != 0 {
		t.Fatalf("ParseFilter() = %+v, want empty condition", cond)
	}
}

func TestParseFilterEquality(t *testing.T) {
	cond, err := ParseFilter(`player_id = "ana"`)
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	if cond.Clause != "player_id = ?" {
		t.Fatalf("Clause = %q, want %q", cond.Clause, "player_id = ?")
	}
	if len(cond.Params) != 1 || cond.Params[0] != "ana" {
		t.Fatalf("Params = %v, want [ana]", cond.Params)
	}
}

func TestParseFilterTypeColumnMapping(t *testing.T) {
	cond, err := ParseFilter(`type = "suspicion"`)
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	if cond.Clause != "entry_type = ?" {
		t.Fatalf("Clause = %q, want %q", cond.Clause, "entry_type = ?")
	}
}

func TestParseFilterConjunction(t *testing.T) {
	cond, err := ParseFilter(`player_id = "ana" AND type != "observation"`)
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	want := "(player_id = ? AND entry_type != ?)"
	if cond.Clause != want {
		t.Fatalf("Clause = %q, want %q", cond.Clause, want)
	}
	if len(cond.Params) != 2 {
		t.Fatalf("len(Params) = %d, want 2", len(cond.Params))
	}
}

func TestParseFilterTimestamp(t *testing.T) {
	cond, err := ParseFilter(`ts >= timestamp("2026-03-01T12:00:00Z")`)
	if err != nil {
		t.Fatalf("ParseFilter() error = %v", err)
	}
	if cond.Clause != "ts_ms >= ?" {
		t.Fatalf("Clause = %q, want %q", cond.Clause, "ts_ms >= ?")
	}
	ms, ok := cond.Params[0].(int64)
	if !ok {
		t.Fatalf("Params[0] = %T, want int64", cond.Params[0])
	}
	if ms != 1772366400000 {
		t.Fatalf("Params[0] = %d, want 1772366400000", ms)
	}
}

func TestParseFilterUnknownField(t *testing.T) {
	_, err := ParseFilter(`seat = 3`)
	if grimerrors.CodeOf(err) != grimerrors.CodeJournalBadFilter {
		t.Fatalf("ParseFilter() error = %v, want code %s", err, grimerrors.CodeJournalBadFilter)
	}
}

func TestParseFilterMalformed(t *testing.T) {
	_, err := ParseFilter(`player_id = `)
	if grimerrors.CodeOf(err) != grimerrors.CodeJournalBadFilter {
		t.Fatalf("ParseFilter() error = %v, want code %s", err, grimerrors.CodeJournalBadFilter)
	}
}
