// Package draft persists the candidate's in-progress answers.
//
// A draft is one record per question, stored under the key
// "exam-answer:<questionId>" and overwritten on every save. Persistence is
// best-effort: load falls back to the starter template and save failures
// are logged, never returned to the candidate.
package draft

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/zeebo/blake3"
)

// ErrNotFound is returned by a Store when no record exists for a key.
var ErrNotFound = errors.New("draft not found")

// KeyPrefix prefixes every draft key.
const KeyPrefix = "exam-answer:"

// Key returns the storage key for a question's draft.
func Key(questionID string) string {
	return KeyPrefix + questionID
}

// Record is one stored draft.
type Record struct {
	Key     string    `json:"key" cbor:"key"`
	Text    string    `json:"text" cbor:"text"`
	SavedAt time.Time `json:"saved_at" cbor:"saved_at"`
	Digest  string    `json:"digest" cbor:"digest"`
}

// NewRecord builds a record for text with its digest filled in.
func NewRecord(key, text string, savedAt time.Time) Record {
	return Record{Key: key, Text: text, SavedAt: savedAt, Digest: Digest(text)}
}

// Verify reports whether the stored digest matches the text.
func (r Record) Verify() bool {
	return r.Digest == Digest(r.Text)
}

// Digest returns the hex BLAKE3 digest of text.
func Digest(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Store is a keyed record store for drafts.
type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Record, error)
}
