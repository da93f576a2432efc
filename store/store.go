// Package store is the boundary to the authoritative persistent store. Hands
// and seats are stored as versioned rows keyed by hand id (and seat position);
// updates touch only the fields they name, bump the row version, and return
// the post-update row. Every commit is pushed to watchers as a post-commit
// snapshot with at-least-once delivery and no ordering guarantee across the
// hand and seat tables.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("row not found")

// SyncError wraps a failed store operation or a malformed row read back from
// the store. Malformed rows are rejected here rather than letting partial
// data reach game logic.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Fields names the columns touched by a partial update.
type Fields map[string]any

// Notification is a post-commit snapshot of a single row. Exactly one of
// Hand or Seat is set.
type Notification struct {
	HandID string
	Hand   *HandRow
	Seat   *SeatRow
}

// Store is the row-oriented persistence contract.
type Store interface {
	// SaveHand inserts or fully replaces a hand row and returns it with its
	// new version.
	SaveHand(ctx context.Context, row HandRow) (HandRow, error)

	// UpdateHandFields updates only the named fields of a hand row and
	// returns the post-update row.
	UpdateHandFields(ctx context.Context, handID string, fields Fields) (HandRow, error)

	// SaveSeat inserts or fully replaces a seat row.
	SaveSeat(ctx context.Context, row SeatRow) (SeatRow, error)

	// UpdateSeatFields updates only the named fields of a seat row and
	// returns the post-update row.
	UpdateSeatFields(ctx context.Context, handID string, position int, fields Fields) (SeatRow, error)

	GetHand(ctx context.Context, handID string) (HandRow, error)
	GetSeats(ctx context.Context, handID string) ([]SeatRow, error)

	// Watch subscribes to post-commit snapshots for one hand. The channel
	// closes when the context is done.
	Watch(ctx context.Context, handID string) (<-chan Notification, error)

	Close() error
}
