package core

import (
	"errors"

	"github.com/parlorchat/parlor/internal/domain"
)

type SessionID string

var (
	// ErrBackpressure means the member's send buffer is full; the line is
	// dropped for that member only.
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Sender abstracts a one-line-at-a-time outbound transport.
// Owned by the adapter; the adapter must Close() it.
type Sender interface {
	// TrySend enqueues one protocol line without blocking.
	TrySend(line string) error
	// Close tears the transport down after draining queued lines.
	Close()
}

// MemberSession is what a room stores and fans out to: display identity plus
// the transport endpoint. It never exposes room state back to the room.
type MemberSession interface {
	ID() SessionID
	Name() string
	Sender() Sender
}

// PublishResult reports delivery stats for one fan-out call.
type PublishResult struct {
	SentTo  int
	Dropped int
}

// HistoryStore persists the full ordered history of a room.
// A missing record is the normal new-room case, not an error.
type HistoryStore interface {
	Load(room domain.RoomName) ([]string, error)
	Save(room domain.RoomName, history []string) error
}

// RoomInfo is a read-only view for APIs (no transport or lock fields).
type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"member_count"`
	HistoryLen  int             `json:"history_len"`
}
