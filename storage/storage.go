// Package storage defines the save-game records and the persistence contract
// the session layer depends on.
package storage

import (
	"context"
	"time"
)

// SaveRecord is an immutable snapshot of a session.
type SaveRecord struct {
	ID                  int64
	PlayerName          string
	CreatedAt           time.Time
	Mode                string
	HistoryJSON         []byte
	OfflineStoryID      string
	OfflineSegmentIndex int
}

// SaveSummary is the listing view of a SaveRecord.
type SaveSummary struct {
	ID         int64
	PlayerName string
	CreatedAt  time.Time
}

// SaveStore persists SaveRecords. Records are inserted and deleted, never
// updated.
type SaveStore interface {
	// Insert stores rec and returns its generated id. rec.ID is ignored.
	Insert(ctx context.Context, rec SaveRecord) (int64, error)
	// List returns all saves, most recent first.
	List(ctx context.Context) ([]SaveSummary, error)
	// Get loads one save. found is false when no record has that id.
	Get(ctx context.Context, id int64) (rec SaveRecord, found bool, err error)
	// Delete removes a save. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id int64) error
}
