package core

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/parlorchat/parlor/internal/domain"
)

// Room is a threadsafe named chat channel. One mutex guards both the member
// list and the history, so every fan-out observes a consistent membership
// snapshot and history replay is atomic with respect to concurrent chat.
// Members are kept in join order; that order is visible on the wire (active
// user listing, private-message resolution under duplicate names).
type Room struct {
	name  domain.RoomName
	store HistoryStore

	mu      sync.Mutex
	members []MemberSession
	history []string
}

func newRoom(name domain.RoomName, history []string, store HistoryStore) *Room {
	return &Room{
		name:    name,
		store:   store,
		history: history,
	}
}

func (r *Room) Name() domain.RoomName { return r.name }

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		Name:        r.name,
		MemberCount: len(r.members),
		HistoryLen:  len(r.history),
	}
}

// Join adds the session to the member list and runs the whole join sequence
// under the room lock: history replay (bounded by start/end markers), the
// join confirmation, the joined announcement to the other members, and the
// refreshed active-user line to everyone.
func (r *Room) Join(ms MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members = append(r.members, ms)

	if len(r.history) > 0 {
		r.trySend(ms, domain.HistoryStart)
		for _, line := range r.history {
			r.trySend(ms, line)
		}
		r.trySend(ms, domain.HistoryEnd)
	}
	r.trySend(ms, domain.JoinConfirmation(r.name))

	r.broadcastLocked(domain.JoinedLine(ms.Name()), ms, false)
	r.sendActiveUsersLocked()

	log.Info().Str("module", "core.room").Str("room", string(r.name)).
		Str("sid", string(ms.ID())).Str("name", ms.Name()).Msg("member joined")
}

// Say appends the formatted chat line to the history, persists the full
// history, and broadcasts the line to every member including the sender.
// A persistence failure is logged; the in-memory history stays authoritative.
func (r *Room) Say(ms MemberSession, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	formatted := domain.ChatLine(ms.Name(), text)
	r.history = append(r.history, formatted)
	if err := r.store.Save(r.name, r.history); err != nil {
		log.Warn().Err(err).Str("module", "core.room").Str("room", string(r.name)).
			Msg("history save failed, in-memory history remains authoritative")
	}
	r.broadcastLocked(formatted, ms, true)
}

// Broadcast delivers one line to every member; the sender is skipped unless
// includeSender is set. A failed or dropped send to one member never aborts
// delivery to the others.
func (r *Room) Broadcast(line string, sender MemberSession, includeSender bool) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(line, sender, includeSender)
}

func (r *Room) broadcastLocked(line string, sender MemberSession, includeSender bool) PublishResult {
	res := PublishResult{}
	for _, m := range r.members {
		if !includeSender && m == sender {
			continue
		}
		if err := m.Sender().TrySend(line); err != nil {
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	if res.Dropped > 0 {
		log.Warn().Str("module", "core.room").Str("room", string(r.name)).
			Int("sent_to", res.SentTo).Int("dropped", res.Dropped).Msg("broadcast dropped lines")
	}
	return res
}

// SendActiveUsers sends the member summary line to every member.
func (r *Room) SendActiveUsers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendActiveUsersLocked()
}

func (r *Room) sendActiveUsersLocked() {
	names := lo.FilterMap(r.members, func(m MemberSession, _ int) (string, bool) {
		return m.Name(), m.Name() != ""
	})
	line := domain.ActiveUsersLine(names)
	for _, m := range r.members {
		r.trySend(m, line)
	}
}

// PrivateMessage resolves the first member in join order whose display name
// matches. Duplicate names are allowed; first match wins. An unknown
// recipient is reported to the sender only.
func (r *Room) PrivateMessage(sender MemberSession, recipientName, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.Name() == recipientName {
			r.trySend(m, domain.PrivateFromLine(sender.Name(), text))
			r.trySend(sender, domain.PrivateToLine(recipientName, text))
			return
		}
	}
	r.trySend(sender, domain.UserNotFoundLine(recipientName))
}

// Remove takes the session out of the member list. It reports whether the
// session was actually a member, which makes departure cleanup idempotent.
// A named member's departure is announced to the remaining members, followed
// by a refreshed active-user line.
func (r *Room) Remove(ms MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, m := range r.members {
		if m == ms {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)

	if ms.Name() != "" {
		r.broadcastLocked(domain.LeftLine(ms.Name()), ms, false)
		r.sendActiveUsersLocked()
	}
	log.Info().Str("module", "core.room").Str("room", string(r.name)).
		Str("sid", string(ms.ID())).Msg("member removed")
	return true
}

func (r *Room) trySend(m MemberSession, line string) {
	if err := m.Sender().TrySend(line); err != nil {
		log.Debug().Err(err).Str("module", "core.room").Str("room", string(r.name)).
			Str("sid", string(m.ID())).Msg("line dropped")
	}
}
