package journal

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/louisbranch/grimoire/internal/platform/errors"
)

// pageCursor is the decoded state of an opaque pagination token. The
// filter hash invalidates a token when the caller changes the filter
// between pages.
type pageCursor struct {
	Seq        uint64 `json:"seq"`
	FilterHash string `json:"fh,omitempty"`
}

// EncodePageToken builds an opaque token that resumes a listing after
// the given sequence number.
func EncodePageToken(lastSeq uint64, filter string) string {
	data, err := json.Marshal(pageCursor{Seq: lastSeq, FilterHash: hashFilter(filter)})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodePageToken returns the sequence number a token resumes after.
// The filter must match the one the token was issued for.
func DecodePageToken(token, filter string) (uint64, error) {
	if token == "" {
		return 0, errors.New(errors.CodeJournalBadCursor, "empty page token")
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return 0, errors.Wrap(errors.CodeJournalBadCursor, "decode page token", err)
	}
	var c pageCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, errors.Wrap(errors.CodeJournalBadCursor, "unmarshal page token", err)
	}
	if c.FilterHash != hashFilter(filter) {
		return 0, errors.New(errors.CodeJournalBadCursor, "filter changed since page token was issued")
	}
	return c.Seq, nil
}

// hashFilter computes a short hash of the filter string for token
// validation. Empty filters hash to the empty string.
func hashFilter(filter string) string {
	if filter == "" {
		return ""
	}
	h := sha256.Sum256([]byte(filter))
	return hex.EncodeToString(h[:8])
}
