package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parlorchat/parlor/internal/core"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := core.NewRegistry(newStubStore())

	lobby := reg.GetOrCreate("lobby")
	req.Same(lobby, reg.GetOrCreate("lobby"))
	req.NotSame(lobby, reg.GetOrCreate("den"))
}

func TestGetOrCreateLoadsPersistedHistoryOnce(t *testing.T) {
	req := require.New(t)
	store := newStubStore()
	store.saved["lobby"] = []string{"[Alice]: hello"}
	reg := core.NewRegistry(store)

	room := reg.GetOrCreate("lobby")
	req.Equal(1, room.Info().HistoryLen)

	// A later load error is irrelevant; the room was already materialized.
	store.loadErr = errors.New("disk gone")
	req.Same(room, reg.GetOrCreate("lobby"))
}

func TestGetOrCreateToleratesLoadFailure(t *testing.T) {
	req := require.New(t)
	store := newStubStore()
	store.loadErr = errors.New("corrupt file")
	reg := core.NewRegistry(store)

	room := reg.GetOrCreate("lobby")
	req.Equal(0, room.Info().HistoryLen)
}

func TestRoomsAreNeverDeleted(t *testing.T) {
	req := require.New(t)
	reg := core.NewRegistry(newStubStore())
	room := reg.GetOrCreate("lobby")

	alice := newFakeMember("s1", "Alice")
	room.Join(alice)
	room.Remove(alice)

	req.Len(reg.List(), 1)
	req.Equal(0, reg.List()[0].MemberCount)
}

func TestListReportsRooms(t *testing.T) {
	req := require.New(t)
	store := newStubStore()
	store.saved["lobby"] = []string{"[Alice]: hello", "[Bob]: hey"}
	reg := core.NewRegistry(store)

	lobby := reg.GetOrCreate("lobby")
	reg.GetOrCreate("den")
	lobby.Join(newFakeMember("s1", "Alice"))

	infos := reg.List()
	req.Len(infos, 2)
	byName := make(map[string]core.RoomInfo)
	for _, info := range infos {
		byName[string(info.Name)] = info
	}
	req.Equal(1, byName["lobby"].MemberCount)
	req.Equal(2, byName["lobby"].HistoryLen)
	req.Equal(0, byName["den"].MemberCount)
}
