package connection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func startManager(t *testing.T) *Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mgr := NewManager()
	go mgr.Start(ctx)
	return mgr
}

func register(t *testing.T, mgr *Manager, id string) *Client {
	t.Helper()
	client := &Client{ID: id, Send: make(chan []byte, 8)}
	mgr.Register <- client

	// Registration is processed by the manager loop; wait for it to land.
	assert.Eventually(t, func() bool {
		return mgr.IdentifyPlayer(id, "probe-"+id)
	}, time.Second, 5*time.Millisecond)
	return client
}

func TestIdentifyAndSendToPlayer(t *testing.T) {
	mgr := startManager(t)
	client := register(t, mgr, "conn-1")

	assert.True(t, mgr.IdentifyPlayer("conn-1", "alice"))
	assert.False(t, mgr.IdentifyPlayer("ghost", "bob"))

	assert.True(t, mgr.SendToPlayer("alice", []byte("hello")))
	assert.Equal(t, []byte("hello"), <-client.Send)

	assert.False(t, mgr.SendToPlayer("nobody", []byte("hello")))
}

func TestSendToTableReachesOnlyWatchers(t *testing.T) {
	mgr := startManager(t)
	watcher := register(t, mgr, "conn-1")
	bystander := register(t, mgr, "conn-2")

	assert.True(t, mgr.WatchTable("conn-1", "table-1"))
	assert.False(t, mgr.WatchTable("ghost", "table-1"))

	mgr.SendToTable("table-1", []byte("update"))

	assert.Equal(t, []byte("update"), <-watcher.Send)
	assert.Empty(t, bystander.Send)
}

func TestUnwatchStopsDelivery(t *testing.T) {
	mgr := startManager(t)
	client := register(t, mgr, "conn-1")

	mgr.WatchTable("conn-1", "table-1")
	assert.True(t, mgr.UnwatchTable("conn-1", "table-1"))
	assert.False(t, mgr.UnwatchTable("conn-1", "table-1"))

	mgr.SendToTable("table-1", []byte("update"))
	assert.Empty(t, client.Send)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	mgr := startManager(t)
	client := register(t, mgr, "conn-1")

	mgr.Unregister <- client

	assert.Eventually(t, func() bool {
		select {
		case _, open := <-client.Send:
			return !open
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestSlowConsumerIsSkipped(t *testing.T) {
	mgr := startManager(t)
	client := &Client{ID: "conn-1", Send: make(chan []byte)} // no buffer
	mgr.Register <- client

	assert.Eventually(t, func() bool {
		return mgr.IdentifyPlayer("conn-1", "alice")
	}, time.Second, 5*time.Millisecond)

	assert.False(t, mgr.SendToPlayer("alice", []byte("dropped")))
}
