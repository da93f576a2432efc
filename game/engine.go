// Package game runs tables. Each table gets one engine goroutine that owns
// the domain state outright: player commands, turn timeouts, bot decisions
// and store snapshots all arrive as inputs to that single loop, so no lock
// ever guards the hand itself.
package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lazharichir/holdem/domain"
	"github.com/lazharichir/holdem/domain/events"
	"github.com/lazharichir/holdem/store"
)

type command struct {
	apply func() error
	reply chan error
}

// TableEngine drives a single table. All public methods are safe for
// concurrent use; they funnel into the loop and block until the loop has
// applied them.
type TableEngine struct {
	table  *domain.Table
	store  store.Store
	events events.EventStore
	log    *log.Logger

	rec   *reconciler
	sched *scheduler

	commands    chan command
	watch       <-chan store.Notification
	watchCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTableEngine wires an engine around an existing table. Every event the
// table emits is appended to the event store under the active hand's id,
// or the table's own id for events outside a hand.
func NewTableEngine(table *domain.Table, st store.Store, es events.EventStore, logger *log.Logger) *TableEngine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &TableEngine{
		table:    table,
		store:    st,
		events:   es,
		log:      logger.With("table", table.ID),
		rec:      newReconciler(st, logger),
		sched:    newScheduler(table.Rules),
		commands: make(chan command, 64),
		ctx:      ctx,
		cancel:   cancel,
	}

	table.RegisterEventHandler(func(event events.Event) {
		streamID := table.ID
		if hand := table.ActiveHand; hand != nil {
			streamID = hand.ID
		}
		if err := es.Append(streamID, event); err != nil {
			e.log.Error("append event", "event", event.Name(), "err", err)
		}
	})

	return e
}

// Start launches the engine loop.
func (e *TableEngine) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run()
	}()
}

// Stop shuts the loop down and waits for it to exit.
func (e *TableEngine) Stop() {
	e.cancel()
	e.wg.Wait()
}

// Table returns the table this engine drives. Callers must not mutate it;
// reads of live state should go through Snapshot or ViewFor instead.
func (e *TableEngine) Table() *domain.Table { return e.table }

// do submits fn to the loop and waits for the result.
func (e *TableEngine) do(fn func() error) error {
	cmd := command{apply: fn, reply: make(chan error, 1)}
	select {
	case e.commands <- cmd:
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

// SeatPlayer sits a player (or bot) at the table.
func (e *TableEngine) SeatPlayer(playerID, name string, position, chips int, automated bool) error {
	return e.do(func() error {
		_, err := e.table.SeatPlayer(playerID, name, position, chips, automated)
		return err
	})
}

// Leave removes a player, folding them first if they hold the turn.
func (e *TableEngine) Leave(playerID string) error {
	return e.do(func() error {
		return e.table.PlayerLeaves(playerID)
	})
}

// StartHand opens the table if needed, deals a fresh hand and arms the
// first turn.
func (e *TableEngine) StartHand() error {
	return e.do(func() error {
		if e.table.Status == domain.TableStatusWaiting {
			if err := e.table.AllowPlaying(); err != nil {
				return err
			}
		}

		hand, err := e.table.StartNewHand()
		if err != nil {
			return err
		}

		e.rec.trackHand(hand.ID)
		e.sched.resetStalls()
		e.rewatch(hand.ID)

		if err := hand.StartDealing(); err != nil {
			return err
		}

		e.log.Info("hand started", "hand", hand.ID, "button", hand.ButtonPosition)
		return nil
	})
}

// Act applies a player's action to the active hand.
func (e *TableEngine) Act(playerID string, kind domain.ActionKind, amount int) error {
	return e.do(func() error {
		hand := e.table.ActiveHand
		if hand == nil {
			return fmt.Errorf("no active hand")
		}
		seat := e.table.SeatByPlayer(playerID)
		if seat == nil {
			return fmt.Errorf("player %s is not seated", playerID)
		}
		if err := hand.ApplyAction(seat.Position, kind, amount); err != nil {
			return err
		}
		e.sched.noteAction(false)
		return nil
	})
}

// AbortHand cancels the active hand and refunds contributed chips.
func (e *TableEngine) AbortHand(reason string) error {
	return e.do(func() error {
		hand := e.table.ActiveHand
		if hand == nil {
			return fmt.Errorf("no active hand")
		}
		return hand.Abort(reason)
	})
}

// ViewFor returns the active hand as seen by one viewer, with hole cards
// the viewer may not see masked out.
func (e *TableEngine) ViewFor(viewerID string) (domain.HandView, error) {
	var view domain.HandView
	err := e.do(func() error {
		hand := e.table.ActiveHand
		if hand == nil {
			return fmt.Errorf("no active hand")
		}
		view = hand.ViewFor(viewerID)
		return nil
	})
	return view, err
}

// TableSnapshot is a read-only summary of a table for lobby listings.
type TableSnapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Players     int    `json:"players"`
	HandsPlayed int    `json:"handsPlayed"`
	HandID      string `json:"handId,omitempty"`
	Phase       string `json:"phase,omitempty"`
}

// Snapshot returns the lobby summary for this table.
func (e *TableEngine) Snapshot() (TableSnapshot, error) {
	var snap TableSnapshot
	err := e.do(func() error {
		snap = TableSnapshot{
			ID:          e.table.ID,
			Name:        e.table.Name,
			Status:      string(e.table.Status),
			Players:     len(e.table.OccupiedSeats()),
			HandsPlayed: e.table.HandsPlayed,
		}
		if hand := e.table.ActiveHand; hand != nil {
			snap.HandID = hand.ID
			snap.Phase = string(hand.Phase)
		}
		return nil
	})
	return snap, err
}

func (e *TableEngine) run() {
	defer e.sched.disarm()
	defer func() {
		if e.watchCancel != nil {
			e.watchCancel()
		}
	}()

	for {
		e.sched.rearm(e.table.ActiveHand)

		select {
		case <-e.ctx.Done():
			return

		case cmd := <-e.commands:
			cmd.reply <- cmd.apply()
			e.afterInput()

		case <-e.sched.turnC():
			e.handleTurnTimeout()
			e.afterInput()

		case <-e.sched.botC():
			e.handleBotTurn()
			e.afterInput()

		case n, ok := <-e.watch:
			if !ok {
				e.watch = nil
				continue
			}
			// Snapshot merges update fields only; they never re-fire a
			// transition, so no afterInput push is needed when nothing
			// changed.
			if e.rec.merge(n, e.table.ActiveHand) {
				e.log.Debug("merged store snapshot", "hand", n.HandID)
			}
		}
	}
}

// afterInput runs after every applied input: flush state to the store and
// abort the hand if it only moves through synthesized actions.
func (e *TableEngine) afterInput() {
	hand := e.table.ActiveHand
	if hand == nil {
		return
	}

	if e.sched.stalled() && hand.Phase.Betting() {
		e.log.Warn("aborting stalled hand", "hand", hand.ID, "stalls", e.sched.stalls)
		if err := hand.Abort(domain.ErrStuckRound.Error()); err != nil {
			e.log.Error("abort stalled hand", "hand", hand.ID, "err", err)
		}
		e.sched.resetStalls()
	}

	e.rec.push(e.ctx, hand)
}

// handleTurnTimeout synthesizes the default action for the seat whose
// timer fired, if that seat still holds the turn.
func (e *TableEngine) handleTurnTimeout() {
	hand := e.table.ActiveHand
	key := e.sched.current()
	e.sched.disarm()

	if hand == nil || hand.ID != key.handID || hand.Phase != key.phase || hand.CurrentTurn != key.position {
		return
	}

	e.log.Info("turn timed out", "hand", hand.ID, "position", key.position)
	if err := hand.ApplyDefaultAction(key.position); err != nil {
		e.log.Error("apply default action", "hand", hand.ID, "position", key.position, "err", err)
		return
	}
	e.sched.noteAction(true)
}

// handleBotTurn lets an automated seat act after its decision delay.
func (e *TableEngine) handleBotTurn() {
	hand := e.table.ActiveHand
	key := e.sched.current()
	e.sched.disarm()

	if hand == nil || hand.ID != key.handID || hand.Phase != key.phase || hand.CurrentTurn != key.position {
		return
	}

	seat := hand.Seats[key.position]
	if !seat.Automated {
		return
	}

	kind := e.sched.decide(hand, seat)
	if err := hand.ApplyAction(key.position, kind, 0); err != nil {
		e.log.Error("bot action", "hand", hand.ID, "position", key.position, "action", kind, "err", err)
		// Fall back to the default action rather than leave the turn hung.
		if err := hand.ApplyDefaultAction(key.position); err != nil {
			e.log.Error("bot default action", "hand", hand.ID, "position", key.position, "err", err)
			return
		}
		e.sched.noteAction(true)
		return
	}
	e.sched.noteAction(false)
}

// rewatch points the store subscription at a new hand.
func (e *TableEngine) rewatch(handID string) {
	if e.watchCancel != nil {
		e.watchCancel()
	}

	ctx, cancel := context.WithCancel(e.ctx)
	watch, err := e.store.Watch(ctx, handID)
	if err != nil {
		e.log.Error("watch hand", "hand", handID, "err", err)
		cancel()
		e.watch = nil
		e.watchCancel = nil
		return
	}
	e.watch = watch
	e.watchCancel = cancel
}
