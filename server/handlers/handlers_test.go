package handlers

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"github.com/lazharichir/holdem/domain/events"
	"github.com/lazharichir/holdem/game"
	"github.com/lazharichir/holdem/server/connection"
	"github.com/lazharichir/holdem/store"
)

func newTestRouter(t *testing.T) (*CommandRouter, *game.Lobby) {
	t.Helper()
	logger := log.New(io.Discard)
	lobby := game.NewLobby(store.NewMemoryStore(), events.NewInMemoryEventStore(), logger)
	t.Cleanup(lobby.Close)
	return NewCommandRouter(lobby, connection.NewManager(), logger), lobby
}

func TestUnknownCommandIsRejected(t *testing.T) {
	router, _ := newTestRouter(t)
	client := &connection.Client{ID: "conn-1"}

	err := router.HandleCommand(client, []byte(`{"name":"TELEPORT"}`))
	assert.ErrorContains(t, err, "unknown command")

	err = router.HandleCommand(client, []byte(`not json`))
	assert.Error(t, err)
}

func TestSeatingRequiresIdentity(t *testing.T) {
	router, _ := newTestRouter(t)
	client := &connection.Client{ID: "conn-1"}

	err := router.HandleCommand(client, []byte(`{"name":"PLAYER_SEATS","tableId":"t1","position":0}`))
	assert.ErrorContains(t, err, "identify before seating")

	err = router.HandleCommand(client, []byte(`{"name":"PLAYER_ACTS","tableId":"t1","action":"check"}`))
	assert.ErrorContains(t, err, "identify before acting")
}

func TestCommandsAgainstUnknownTable(t *testing.T) {
	router, _ := newTestRouter(t)
	client := &connection.Client{ID: "conn-1", PlayerID: "alice"}

	err := router.HandleCommand(client, []byte(`{"name":"WATCH_TABLE","tableId":"missing"}`))
	assert.ErrorIs(t, err, game.ErrTableNotFound)

	err = router.HandleCommand(client, []byte(`{"name":"START_HAND","tableId":"missing"}`))
	assert.ErrorIs(t, err, game.ErrTableNotFound)
}

func TestIdentifyRequiresPlayerID(t *testing.T) {
	router, _ := newTestRouter(t)
	client := &connection.Client{ID: "conn-1"}

	err := router.HandleCommand(client, []byte(`{"name":"IDENTIFY"}`))
	assert.ErrorContains(t, err, "playerId is required")
}
