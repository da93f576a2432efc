package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazharichir/holdem/domain"
	"github.com/lazharichir/holdem/domain/events"
	"github.com/lazharichir/holdem/game"
	"github.com/lazharichir/holdem/store"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lobby := game.NewLobby(store.NewMemoryStore(), events.NewInMemoryEventStore(), log.New(io.Discard))
	t.Cleanup(lobby.Close)

	rules := domain.TableRules{
		MinBet:        10,
		PlayerTimeout: time.Hour,
	}
	return NewServer(lobby, rules, log.New(io.Discard)).Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createTable(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/tables", gin.H{"name": "test table"})
	require.Equal(t, http.StatusCreated, w.Code)

	var snap game.TableSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotEmpty(t, snap.ID)
	return snap.ID
}

func TestHealth(t *testing.T) {
	router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateAndListTables(t *testing.T) {
	router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/tables", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	id := createTable(t, router)

	w = doJSON(t, router, http.MethodGet, "/api/tables", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var tables []game.TableSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, id, tables[0].ID)
	assert.Equal(t, "test table", tables[0].Name)
	assert.Equal(t, "waiting", tables[0].Status)

	// Missing name fails validation.
	w = doJSON(t, router, http.MethodPost, "/api/tables", gin.H{"minBet": 20})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownTableIs404(t *testing.T) {
	router := newTestServer(t)
	w := doJSON(t, router, http.MethodPost, "/api/tables/nope/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSeatStartActAndStateFlow(t *testing.T) {
	router := newTestServer(t)
	id := createTable(t, router)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/seat", id), gin.H{
		"playerId": "alice", "position": 0, "chips": 1000,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/seat", id), gin.H{
		"playerId": "bob", "position": 1, "chips": 1000,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	// Same seat twice conflicts.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/seat", id), gin.H{
		"playerId": "carol", "position": 1, "chips": 1000,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/start", id), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Bob opens; alice acting out of turn is rejected.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/act", id), gin.H{
		"playerId": "alice", "action": "check",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/act", id), gin.H{
		"playerId": "bob", "action": "bet", "amount": 50,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/tables/%s/state?player=alice", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view domain.HandView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "preflop", view.Phase)
	assert.Equal(t, 50, view.CurrentBet)
	for _, seat := range view.Seats {
		if seat.PlayerID == "bob" {
			assert.Equal(t, []string{"??", "??"}, seat.HoleCards)
		}
	}
}

func TestAddBotAndStart(t *testing.T) {
	router := newTestServer(t)
	id := createTable(t, router)

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/bots", id), gin.H{"chips": 500})
		require.Equal(t, http.StatusCreated, w.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["playerId"])
	}

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/start", id), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStartWithOnePlayerConflicts(t *testing.T) {
	router := newTestServer(t)
	id := createTable(t, router)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/seat", id), gin.H{
		"playerId": "alice", "position": 0, "chips": 1000,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/start", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLeaveTable(t *testing.T) {
	router := newTestServer(t)
	id := createTable(t, router)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/seat", id), gin.H{
		"playerId": "alice", "position": 0, "chips": 1000,
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/leave", id), gin.H{"playerId": "alice"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tables/%s/leave", id), gin.H{"playerId": "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
