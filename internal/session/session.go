// Package session owns one conversational session's mutable state (a record
// store plus, for the grocery flow, a cart) and drives the finalize path.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/voxdesk/voxdesk/internal/cart"
	"github.com/voxdesk/voxdesk/internal/journal"
	"github.com/voxdesk/voxdesk/internal/record"
	"github.com/voxdesk/voxdesk/internal/schema"
)

// ErrIncompleteRecord is returned by Finalize when required fields are still
// missing. Nothing is appended; the caller should request the missing fields
// and try again.
var ErrIncompleteRecord = errors.New("record is incomplete")

// Receipt identifies a finalized, persisted record.
type Receipt struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a single conversational session. It is owned by one logical
// thread of control; only the shared journal behind it is cross-session.
type Session struct {
	ID      string
	Record  *record.Store
	Cart    *cart.Manager
	journal *journal.Journal
}

// New creates a session with an empty record for the given schema. The cart
// is always present; non-grocery flows simply never touch it.
func New(id string, s *schema.Schema, j *journal.Journal) *Session {
	return &Session{
		ID:      id,
		Record:  record.New(s),
		Cart:    cart.New(),
		journal: j,
	}
}

// Finalize validates completeness, appends the record snapshot to the
// journal, and resets session state. On an incomplete record it fails with
// ErrIncompleteRecord and appends nothing. On a persistence failure the
// record survives untouched so the caller can retry.
func (s *Session) Finalize() (Receipt, error) {
	if !s.Record.IsComplete() {
		return Receipt{}, fmt.Errorf("%w: still need %v", ErrIncompleteRecord, s.Record.MissingFields())
	}

	fields := s.Record.Snapshot()
	if lines := s.Cart.Lines(); len(lines) > 0 {
		fields["items"] = lines
		fields["total"] = s.Cart.Total()
	}

	entry, err := s.journal.Append(s.Record.Schema().Name, fields)
	if err != nil {
		return Receipt{}, err
	}

	s.Record.Reset()
	s.Cart.Clear()
	return Receipt{ID: entry.ID, Timestamp: entry.CreatedAt}, nil
}

// Abandon discards the in-progress record and cart without persisting.
func (s *Session) Abandon() {
	s.Record.Reset()
	s.Cart.Clear()
}
