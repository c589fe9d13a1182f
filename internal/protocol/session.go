// Package protocol implements the per-connection line state machine: name,
// then room, then command dispatch. It is transport-agnostic; adapters feed
// it one line at a time and route every room-scoped effect through core.
package protocol

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/parlorchat/parlor/internal/core"
	"github.com/parlorchat/parlor/internal/domain"
)

type state int

const (
	stateAwaitingName state = iota
	stateAwaitingRoom
	stateActive
)

const (
	cmdExit       = "/exit"
	cmdUsers      = "/users"
	privatePrefix = "@"
)

// Session is the server-side state for one connected client. All lines for a
// session arrive from a single reader goroutine, so name, room, and state
// need no lock of their own; cross-goroutine reads (fan-out) happen under
// the room lock, which the same goroutine acquires on join.
type Session struct {
	id       core.SessionID
	sender   core.Sender
	registry *core.Registry

	name  string
	room  *core.Room
	state state
}

func NewSession(id core.SessionID, registry *core.Registry, sender core.Sender) *Session {
	return &Session{
		id:       id,
		sender:   sender,
		registry: registry,
	}
}

func (s *Session) ID() core.SessionID  { return s.id }
func (s *Session) Name() string        { return s.name }
func (s *Session) Sender() core.Sender { return s.sender }

// Greet sends the first handshake prompt. Adapters call it once, right after
// the connection is wired up.
func (s *Session) Greet() {
	s.send(domain.PromptName)
}

// HandleLine processes one inbound line. Each line is a self-contained unit;
// a panic while handling it is reported to this session only and leaves the
// state machine where it was.
func (s *Session) HandleLine(raw string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "protocol").Str("sid", string(s.id)).
				Any("panic", r).Msg("line handler panicked")
			s.send(domain.ProcessingError)
		}
	}()

	line := strings.TrimSpace(raw)
	switch s.state {
	case stateAwaitingName:
		s.name = line
		s.state = stateAwaitingRoom
		s.send(domain.PromptRoom)
	case stateAwaitingRoom:
		s.room = s.registry.GetOrCreate(domain.RoomName(line))
		s.state = stateActive
		s.room.Join(s)
	case stateActive:
		s.handleCommand(line)
	}
}

func (s *Session) handleCommand(line string) {
	switch {
	case line == cmdExit:
		s.send(domain.Farewell)
		s.sender.Close()
	case line == cmdUsers:
		s.room.SendActiveUsers()
	case strings.HasPrefix(line, privatePrefix):
		recipient, text, _ := strings.Cut(strings.TrimPrefix(line, privatePrefix), " ")
		s.room.PrivateMessage(s, recipient, text)
	default:
		s.room.Say(s, line)
	}
}

func (s *Session) send(line string) {
	if err := s.sender.TrySend(line); err != nil {
		log.Debug().Err(err).Str("module", "protocol").Str("sid", string(s.id)).
			Msg("line dropped")
	}
}

// Leave runs departure cleanup. Safe to call for sessions that never joined
// a room, and safe to call more than once.
func (s *Session) Leave() {
	if s.room == nil {
		return
	}
	s.room.Remove(s)
}
