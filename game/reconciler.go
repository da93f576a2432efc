package game

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lazharichir/holdem/domain"
	"github.com/lazharichir/holdem/store"
)

const (
	pushAttempts = 3
	pushBackoff  = 25 * time.Millisecond
)

// reconciler keeps the engine's hand and the external store converged.
//
// Outbound: after every applied input it diffs the hand against the last
// pushed snapshot and writes only the fields that changed, retrying with
// bounded backoff. Inbound: store notifications are merged back into the
// hand, gated on row version so duplicates and stale redeliveries are
// dropped without re-firing any transition.
type reconciler struct {
	store store.Store
	log   *log.Logger

	handID       string
	savedHand    bool
	lastHandRow  store.HandRow
	savedSeats   map[int]bool
	lastSeatRows map[int]store.SeatRow
	lastApplied  map[string]int64
}

func newReconciler(st store.Store, logger *log.Logger) *reconciler {
	return &reconciler{
		store:        st,
		log:          logger,
		savedSeats:   map[int]bool{},
		lastSeatRows: map[int]store.SeatRow{},
		lastApplied:  map[string]int64{},
	}
}

// trackHand resets per-hand state when a fresh hand starts.
func (r *reconciler) trackHand(handID string) {
	r.handID = handID
	r.savedHand = false
	r.lastHandRow = store.HandRow{}
	r.savedSeats = map[int]bool{}
	r.lastSeatRows = map[int]store.SeatRow{}
	r.lastApplied = map[string]int64{}
}

const handRowKey = "hand"

func seatRowKey(position int) string {
	return "seat:" + strconv.Itoa(position)
}

// push writes the hand and its changed seats out to the store.
func (r *reconciler) push(ctx context.Context, hand *domain.Hand) {
	if hand == nil || hand.ID != r.handID {
		return
	}

	row := handRowFrom(hand)
	if !r.savedHand {
		saved, err := r.withRetry(ctx, "save hand", func() (store.HandRow, error) {
			return r.store.SaveHand(ctx, row)
		})
		if err != nil {
			return
		}
		r.savedHand = true
		r.lastHandRow = saved
		r.lastApplied[handRowKey] = saved.Version
	} else if fields := diffHandRow(r.lastHandRow, row); len(fields) > 0 {
		saved, err := r.withRetry(ctx, "update hand", func() (store.HandRow, error) {
			return r.store.UpdateHandFields(ctx, hand.ID, fields)
		})
		if err != nil {
			return
		}
		r.lastHandRow = saved
		r.lastApplied[handRowKey] = saved.Version
	}

	for _, seat := range hand.Seats {
		if !seat.Occupied() {
			continue
		}
		seatRow := seatRowFrom(hand.ID, seat)
		if !r.savedSeats[seat.Position] {
			saved, err := r.withSeatRetry(ctx, "save seat", func() (store.SeatRow, error) {
				return r.store.SaveSeat(ctx, seatRow)
			})
			if err != nil {
				continue
			}
			r.savedSeats[seat.Position] = true
			r.lastSeatRows[seat.Position] = saved
			r.lastApplied[seatRowKey(seat.Position)] = saved.Version
		} else if fields := diffSeatRow(r.lastSeatRows[seat.Position], seatRow); len(fields) > 0 {
			position := seat.Position
			saved, err := r.withSeatRetry(ctx, "update seat", func() (store.SeatRow, error) {
				return r.store.UpdateSeatFields(ctx, hand.ID, position, fields)
			})
			if err != nil {
				continue
			}
			r.lastSeatRows[seat.Position] = saved
			r.lastApplied[seatRowKey(seat.Position)] = saved.Version
		}
	}
}

func (r *reconciler) withRetry(ctx context.Context, op string, fn func() (store.HandRow, error)) (store.HandRow, error) {
	var row store.HandRow
	var err error
	for attempt := 0; attempt < pushAttempts; attempt++ {
		if row, err = fn(); err == nil {
			return row, nil
		}
		select {
		case <-ctx.Done():
			return store.HandRow{}, ctx.Err()
		case <-time.After(pushBackoff << attempt):
		}
	}
	r.log.Error("store write failed", "op", op, "err", err)
	return store.HandRow{}, err
}

func (r *reconciler) withSeatRetry(ctx context.Context, op string, fn func() (store.SeatRow, error)) (store.SeatRow, error) {
	var row store.SeatRow
	var err error
	for attempt := 0; attempt < pushAttempts; attempt++ {
		if row, err = fn(); err == nil {
			return row, nil
		}
		select {
		case <-ctx.Done():
			return store.SeatRow{}, ctx.Err()
		case <-time.After(pushBackoff << attempt):
		}
	}
	r.log.Error("store write failed", "op", op, "err", err)
	return store.SeatRow{}, err
}

// merge applies an inbound notification to the hand. It returns true when
// the hand actually changed. Rows for other hands, rows at or below the
// last applied version, and rows that fail validation are all dropped.
func (r *reconciler) merge(n store.Notification, hand *domain.Hand) bool {
	if hand == nil || n.HandID != hand.ID {
		return false
	}

	changed := false

	if n.Hand != nil {
		row := *n.Hand
		if err := store.ValidateHandRow(row); err != nil {
			r.log.Warn("dropping malformed hand row", "hand", n.HandID, "err", err)
		} else if row.Version > r.lastApplied[handRowKey] {
			r.lastApplied[handRowKey] = row.Version
			changed = r.mergeHandRow(row, hand) || changed
			r.lastHandRow = row
		}
	}

	if n.Seat != nil {
		row := *n.Seat
		if err := store.ValidateSeatRow(row); err != nil {
			r.log.Warn("dropping malformed seat row", "hand", n.HandID, "position", row.Position, "err", err)
		} else if row.Version > r.lastApplied[seatRowKey(row.Position)] {
			r.lastApplied[seatRowKey(row.Position)] = row.Version
			changed = r.mergeSeatRow(row, hand) || changed
			r.lastSeatRows[row.Position] = row
		}
	}

	return changed
}

// mergeHandRow folds authoritative scalar fields back into the hand. Phase
// is owned by the hand's own state machine, so a differing phase is logged
// and left alone rather than forced.
func (r *reconciler) mergeHandRow(row store.HandRow, hand *domain.Hand) bool {
	changed := false
	if row.Pot != hand.Pot {
		hand.Pot = row.Pot
		changed = true
	}
	if row.CurrentBet != hand.CurrentBet {
		hand.CurrentBet = row.CurrentBet
		changed = true
	}
	if row.CurrentTurn != hand.CurrentTurn {
		hand.CurrentTurn = row.CurrentTurn
		changed = true
	}
	if row.Phase != string(hand.Phase) {
		r.log.Warn("hand row phase differs from local state",
			"hand", hand.ID, "local", hand.Phase, "row", row.Phase)
	}
	return changed
}

func (r *reconciler) mergeSeatRow(row store.SeatRow, hand *domain.Hand) bool {
	if row.Position < 0 || row.Position >= len(hand.Seats) {
		return false
	}
	seat := hand.Seats[row.Position]
	changed := false
	if row.Chips != seat.Chips {
		seat.Chips = row.Chips
		changed = true
	}
	if row.CurrentBet != seat.CurrentBet {
		seat.CurrentBet = row.CurrentBet
		changed = true
	}
	if status := domain.SeatStatus(row.Status); status != seat.Status {
		seat.Status = status
		changed = true
	}
	return changed
}

func handRowFrom(hand *domain.Hand) store.HandRow {
	community := make([]string, 0, len(hand.CommunityCards))
	for _, card := range hand.CommunityCards {
		community = append(community, card.String())
	}
	return store.HandRow{
		SchemaVersion:  store.SchemaVersion,
		HandID:         hand.ID,
		TableID:        hand.TableID,
		Phase:          string(hand.Phase),
		ButtonPosition: hand.ButtonPosition,
		CurrentBet:     hand.CurrentBet,
		Pot:            hand.Pot,
		CommunityCards: community,
		CurrentTurn:    hand.CurrentTurn,
	}
}

func seatRowFrom(handID string, seat *domain.Seat) store.SeatRow {
	return store.SeatRow{
		SchemaVersion: store.SchemaVersion,
		HandID:        handID,
		Position:      seat.Position,
		PlayerID:      seat.PlayerID,
		Chips:         seat.Chips,
		CurrentBet:    seat.CurrentBet,
		Status:        string(seat.Status),
	}
}

func diffHandRow(prev, next store.HandRow) store.Fields {
	fields := store.Fields{}
	if prev.Phase != next.Phase {
		fields[store.FieldPhase] = next.Phase
	}
	if prev.ButtonPosition != next.ButtonPosition {
		fields[store.FieldButtonPosition] = next.ButtonPosition
	}
	if prev.CurrentBet != next.CurrentBet {
		fields[store.FieldCurrentBet] = next.CurrentBet
	}
	if prev.Pot != next.Pot {
		fields[store.FieldPot] = next.Pot
	}
	if prev.CurrentTurn != next.CurrentTurn {
		fields[store.FieldCurrentTurn] = next.CurrentTurn
	}
	if len(prev.CommunityCards) != len(next.CommunityCards) {
		fields[store.FieldCommunityCards] = next.CommunityCards
	}
	return fields
}

func diffSeatRow(prev, next store.SeatRow) store.Fields {
	fields := store.Fields{}
	if prev.PlayerID != next.PlayerID {
		fields[store.FieldPlayerID] = next.PlayerID
	}
	if prev.Chips != next.Chips {
		fields[store.FieldChips] = next.Chips
	}
	if prev.CurrentBet != next.CurrentBet {
		fields[store.FieldCurrentBet] = next.CurrentBet
	}
	if prev.Status != next.Status {
		fields[store.FieldStatus] = next.Status
	}
	return fields
}
