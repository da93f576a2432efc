package connection

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents one websocket connection. A client may identify as a
// player and may be watching any number of tables.
type Client struct {
	ID         string
	Conn       *websocket.Conn
	Send       chan []byte
	PlayerID   string
	PlayerName string
	TableIDs   []string
}

// Manager tracks connected clients and who they are watching.
type Manager struct {
	clients   map[string]*Client // connection id -> client
	playerMap map[string]string  // player id -> connection id

	Register   chan *Client
	Unregister chan *Client

	mutex sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		playerMap:  make(map[string]string),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start processes register/unregister traffic until the context ends.
func (m *Manager) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-m.Register:
			m.mutex.Lock()
			m.clients[client.ID] = client
			if client.PlayerID != "" {
				m.playerMap[client.PlayerID] = client.ID
			}
			m.mutex.Unlock()
		case client := <-m.Unregister:
			m.mutex.Lock()
			if _, ok := m.clients[client.ID]; ok {
				if client.PlayerID != "" {
					delete(m.playerMap, client.PlayerID)
				}
				delete(m.clients, client.ID)
				close(client.Send)
			}
			m.mutex.Unlock()
		}
	}
}

// IdentifyPlayer binds a player id to an open connection.
func (m *Manager) IdentifyPlayer(clientID, playerID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	client, ok := m.clients[clientID]
	if !ok {
		return false
	}
	client.PlayerID = playerID
	m.playerMap[playerID] = clientID
	return true
}

// SendToPlayer delivers a message to one player, if connected. Slow
// consumers are skipped rather than blocking the caller.
func (m *Manager) SendToPlayer(playerID string, message []byte) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	connID, exists := m.playerMap[playerID]
	if !exists {
		return false
	}
	client, ok := m.clients[connID]
	if !ok {
		return false
	}
	select {
	case client.Send <- message:
		return true
	default:
		return false
	}
}

// SendToTable delivers a message to every client watching a table.
func (m *Manager) SendToTable(tableID string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, client := range m.clients {
		for _, id := range client.TableIDs {
			if id == tableID {
				select {
				case client.Send <- message:
				default:
				}
				break
			}
		}
	}
}

// WatchTable subscribes a client to a table's messages.
func (m *Manager) WatchTable(clientID, tableID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	client, ok := m.clients[clientID]
	if !ok {
		return false
	}
	for _, id := range client.TableIDs {
		if id == tableID {
			return true
		}
	}
	client.TableIDs = append(client.TableIDs, tableID)
	return true
}

// UnwatchTable drops a client's subscription to a table.
func (m *Manager) UnwatchTable(clientID, tableID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	client, ok := m.clients[clientID]
	if !ok {
		return false
	}
	for i, id := range client.TableIDs {
		if id == tableID {
			client.TableIDs = append(client.TableIDs[:i], client.TableIDs[i+1:]...)
			return true
		}
	}
	return false
}
