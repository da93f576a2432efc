package events

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/lazharichir/holdem/domain/events"
	"github.com/lazharichir/holdem/server/connection"
)

// EventEnvelope wraps an event with its name for client consumption.
type EventEnvelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher fans domain events out to connected clients. Hole card
// contents never travel through events; clients fetch their own masked
// view over the state endpoint, so every event here is safe to broadcast
// to the whole table.
type Dispatcher struct {
	connMgr *connection.Manager
	log     *log.Logger
}

func NewDispatcher(connMgr *connection.Manager, logger *log.Logger) *Dispatcher {
	return &Dispatcher{connMgr: connMgr, log: logger}
}

// HandleEvent routes one domain event to its audience.
func (d *Dispatcher) HandleEvent(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Error("marshal event payload", "event", event.Name(), "err", err)
		return
	}

	envelope, err := json.Marshal(EventEnvelope{Name: event.Name(), Payload: payload})
	if err != nil {
		d.log.Error("marshal event envelope", "event", event.Name(), "err", err)
		return
	}

	switch e := event.(type) {
	case events.PlayerJoinedTable:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.PlayerLeftTable:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.PlayerChipsChanged:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.HandStarted:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.PhaseChanged:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.HoleCardsDealt:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.CommunityCardsDealt:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.BettingRoundStarted:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.BettingRoundEnded:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.PlayerTurnStarted:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.PlayerActed:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.PlayerTimedOut:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.PotAwarded:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.HandEnded:
		d.connMgr.SendToTable(e.TableID, envelope)
	case events.HandAborted:
		d.connMgr.SendToTable(e.TableID, envelope)
	default:
		d.log.Debug("event without a route", "event", event.Name())
	}
}
