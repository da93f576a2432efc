package game

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lazharichir/holdem/domain"
	"github.com/lazharichir/holdem/domain/events"
	"github.com/lazharichir/holdem/store"
)

// ErrTableNotFound is returned when a lobby lookup misses.
var ErrTableNotFound = errors.New("table not found")

// Lobby holds every running table engine, keyed by table id.
type Lobby struct {
	store  store.Store
	events events.EventStore
	log    *log.Logger

	mu       sync.RWMutex
	engines  map[string]*TableEngine
	handlers []events.EventHandler
}

func NewLobby(st store.Store, es events.EventStore, logger *log.Logger) *Lobby {
	return &Lobby{
		store:   st,
		events:  es,
		log:     logger,
		engines: map[string]*TableEngine{},
	}
}

// RegisterEventHandler adds a handler that every table created afterwards
// will emit its events to.
func (l *Lobby) RegisterEventHandler(handler events.EventHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

// CreateTable builds a table, wires it to an engine and starts the engine.
func (l *Lobby) CreateTable(name string, rules domain.TableRules) *TableEngine {
	table := domain.NewTable(name, rules)

	l.mu.Lock()
	for _, handler := range l.handlers {
		table.RegisterEventHandler(handler)
	}
	engine := NewTableEngine(table, l.store, l.events, l.log)
	l.engines[table.ID] = engine
	l.mu.Unlock()

	engine.Start()
	l.log.Info("table created", "table", table.ID, "name", name)
	return engine
}

// GetTable returns the engine for a table id.
func (l *Lobby) GetTable(tableID string) (*TableEngine, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	engine, ok := l.engines[tableID]
	if !ok {
		return nil, ErrTableNotFound
	}
	return engine, nil
}

// Tables returns a lobby snapshot of every table.
func (l *Lobby) Tables() []TableSnapshot {
	l.mu.RLock()
	engines := make([]*TableEngine, 0, len(l.engines))
	for _, engine := range l.engines {
		engines = append(engines, engine)
	}
	l.mu.RUnlock()

	out := make([]TableSnapshot, 0, len(engines))
	for _, engine := range engines {
		snap, err := engine.Snapshot()
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// Close stops every engine.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, engine := range l.engines {
		engine.Stop()
	}
	l.engines = map[string]*TableEngine{}
}
