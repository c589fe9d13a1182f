package tcp_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parlorchat/parlor/internal/adapters/tcp"
	"github.com/parlorchat/parlor/internal/core"
	"github.com/parlorchat/parlor/internal/history"
)

const readTimeout = 2 * time.Second

func startServer(t *testing.T, dir string) (addr string, stop func()) {
	t.Helper()
	store, err := history.NewFileStore(dir)
	require.NoError(t, err)
	registry := core.NewRegistry(store)

	srv := tcp.NewServer(registry, "127.0.0.1:0", 256)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	stop = func() {
		cancel()
		<-done
	}
	return srv.Addr().String(), stop
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialClient(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) sendLine(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *testClient) expectLine(want string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	line, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	require.Equal(c.t, want, strings.TrimRight(line, "\n"))
}

func (c *testClient) expectEOF() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, err := c.r.ReadString('\n')
	require.Error(c.t, err)
}

// join walks the handshake for a fresh connection into the given room.
func (c *testClient) join(name, room string, expectHistory []string, expectUsers string) {
	c.t.Helper()
	c.expectLine("Enter your name: ")
	c.sendLine(name)
	c.expectLine("Enter chat room ID to join/create: ")
	c.sendLine(room)
	if len(expectHistory) > 0 {
		c.expectLine("--- Message History ---")
		for _, line := range expectHistory {
			c.expectLine(line)
		}
		c.expectLine("--- End of History ---")
	}
	c.expectLine("You joined room: " + room)
	c.expectLine(expectUsers)
}

func TestChatScenario(t *testing.T) {
	addr, stop := startServer(t, t.TempDir())
	defer stop()

	alice := dialClient(t, addr)
	alice.join("Alice", "lobby", nil, "Active users: Alice")

	bob := dialClient(t, addr)
	bob.join("Bob", "lobby", nil, "Active users: Alice, Bob")
	alice.expectLine("Bob joined the room.")
	alice.expectLine("Active users: Alice, Bob")

	alice.sendLine("hello")
	alice.expectLine("[Alice]: hello")
	bob.expectLine("[Alice]: hello")

	bob.sendLine("@Alice hi")
	alice.expectLine("[Private from Bob]: hi")
	bob.expectLine("[Private to Alice]: hi")

	bob.sendLine("@Ghost anyone")
	bob.expectLine(`User "Ghost" not found in this room.`)

	bob.sendLine("/users")
	alice.expectLine("Active users: Alice, Bob")
	bob.expectLine("Active users: Alice, Bob")

	alice.sendLine("/exit")
	alice.expectLine("You left the chat.")
	alice.expectEOF()
	bob.expectLine("Alice left the room.")
	bob.expectLine("Active users: Bob")
}

func TestRoomsDoNotLeakAcrossEachOther(t *testing.T) {
	addr, stop := startServer(t, t.TempDir())
	defer stop()

	alice := dialClient(t, addr)
	alice.join("Alice", "lobby", nil, "Active users: Alice")

	carol := dialClient(t, addr)
	carol.join("Carol", "den", nil, "Active users: Carol")

	carol.sendLine("hello den")
	carol.expectLine("[Carol]: hello den")

	// Alice must not have seen anything from the other room.
	alice.sendLine("/users")
	alice.expectLine("Active users: Alice")
}

func TestPartialLineWrites(t *testing.T) {
	addr, stop := startServer(t, t.TempDir())
	defer stop()

	c := dialClient(t, addr)
	c.expectLine("Enter your name: ")
	for _, chunk := range []string{"Al", "ice\nlob", "by\n"} {
		_, err := c.conn.Write([]byte(chunk))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	c.expectLine("Enter chat room ID to join/create: ")
	c.expectLine("You joined room: lobby")
	c.expectLine("Active users: Alice")
}

func TestDisconnectBeforeJoinLeavesNoResidue(t *testing.T) {
	addr, stop := startServer(t, t.TempDir())
	defer stop()

	ghost := dialClient(t, addr)
	ghost.expectLine("Enter your name: ")
	require.NoError(t, ghost.conn.Close())

	// The room the ghost never joined behaves as brand new.
	alice := dialClient(t, addr)
	alice.join("Alice", "lobby", nil, "Active users: Alice")
}

func TestShutdownDisconnectsLiveClients(t *testing.T) {
	addr, stop := startServer(t, t.TempDir())

	alice := dialClient(t, addr)
	alice.join("Alice", "lobby", nil, "Active users: Alice")

	// Serve must return even though Alice never hangs up herself.
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop while a client was still connected")
	}
	alice.expectEOF()
}

func TestHistorySurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	addr, stop := startServer(t, dir)
	alice := dialClient(t, addr)
	alice.join("Alice", "lobby", nil, "Active users: Alice")
	alice.sendLine("hello")
	alice.expectLine("[Alice]: hello")
	alice.sendLine("goodbye")
	alice.expectLine("[Alice]: goodbye")
	alice.sendLine("/exit")
	alice.expectLine("You left the chat.")
	alice.expectEOF()
	stop()

	// Fresh registry and listener over the same history directory.
	addr, stop = startServer(t, dir)
	defer stop()
	carol := dialClient(t, addr)
	carol.join("Carol", "lobby",
		[]string{"[Alice]: hello", "[Alice]: goodbye"},
		"Active users: Carol")
}
