package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parlorchat/parlor/internal/domain"
)

// Registry is the process-wide room table. Rooms are created lazily on first
// reference and never deleted, even once empty; the /api/rooms listing
// exists partly so that growth stays observable.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]*Room
	store HistoryStore
}

func NewRegistry(store HistoryStore) *Registry {
	return &Registry{
		rooms: make(map[domain.RoomName]*Room),
		store: store,
	}
}

// GetOrCreate returns the room, creating it on first reference by loading
// any persisted history. A load failure is logged and the room starts with
// an empty history; the call itself never fails.
func (g *Registry) GetOrCreate(name domain.RoomName) *Room {
	g.mu.RLock()
	room, ok := g.rooms[name]
	g.mu.RUnlock()
	if ok {
		return room
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if room, ok = g.rooms[name]; ok {
		return room
	}

	history, err := g.store.Load(name)
	if err != nil {
		log.Warn().Err(err).Str("module", "core.registry").Str("room", string(name)).
			Msg("history load failed, starting empty")
		history = nil
	}
	room = newRoom(name, history, g.store)
	g.rooms[name] = room
	log.Info().Str("module", "core.registry").Str("room", string(name)).
		Int("history", len(history)).Msg("room created")
	return room
}

func (g *Registry) List() []RoomInfo {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	return out
}
