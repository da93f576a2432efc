package game

import (
	"time"

	"github.com/lazharichir/holdem/domain"
)

// turnKey identifies one specific turn so a timer firing late, after the
// seat already acted, can be recognized and ignored.
type turnKey struct {
	handID   string
	phase    domain.HandPhase
	position int
}

// scheduler owns the two timers feeding the engine loop: the turn timeout
// for human seats and the decision delay for automated seats. It also
// counts consecutive synthesized actions so a hand that only progresses
// through timeouts gets aborted instead of looping forever.
type scheduler struct {
	rules domain.TableRules

	turnTimer *time.Timer
	botTimer  *time.Timer
	armed     turnKey
	stalls    int
}

func newScheduler(rules domain.TableRules) *scheduler {
	return &scheduler{
		rules:     rules,
		turnTimer: stoppedTimer(),
		botTimer:  stoppedTimer(),
	}
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

// rearm points the timers at whichever seat currently holds the turn.
// Re-arming for the same turn is a no-op so an in-flight countdown is not
// restarted by unrelated inputs.
func (s *scheduler) rearm(hand *domain.Hand) {
	if hand == nil || !hand.Phase.Betting() || hand.CurrentTurn == domain.NoTurn {
		s.disarm()
		return
	}

	key := turnKey{handID: hand.ID, phase: hand.Phase, position: hand.CurrentTurn}
	if key == s.armed {
		return
	}
	s.disarm()
	s.armed = key

	seat := hand.Seats[hand.CurrentTurn]
	if seat.Automated {
		s.botTimer.Reset(s.rules.BotDelay)
	} else {
		s.turnTimer.Reset(s.rules.PlayerTimeout)
	}
}

func (s *scheduler) disarm() {
	s.armed = turnKey{}
	if !s.turnTimer.Stop() {
		select {
		case <-s.turnTimer.C:
		default:
		}
	}
	if !s.botTimer.Stop() {
		select {
		case <-s.botTimer.C:
		default:
		}
	}
}

func (s *scheduler) turnC() <-chan time.Time { return s.turnTimer.C }
func (s *scheduler) botC() <-chan time.Time  { return s.botTimer.C }

// current reports the turn the timers are armed for. A fired timer is only
// honored when the hand still sits on that exact turn.
func (s *scheduler) current() turnKey { return s.armed }

// decide picks an action for an automated seat: check when nothing is
// owed, call up to the configured threshold, fold beyond it.
func (s *scheduler) decide(hand *domain.Hand, seat *domain.Seat) domain.ActionKind {
	outstanding := hand.CurrentBet - seat.CurrentBet
	switch {
	case outstanding <= 0:
		return domain.ActionCheck
	case outstanding <= s.rules.BotCallThreshold:
		return domain.ActionCall
	default:
		return domain.ActionFold
	}
}

// noteAction updates the stall counter. Only synthesized actions count;
// any real input from a player or bot resets it.
func (s *scheduler) noteAction(synthesized bool) {
	if synthesized {
		s.stalls++
	} else {
		s.stalls = 0
	}
}

func (s *scheduler) resetStalls() { s.stalls = 0 }

func (s *scheduler) stalled() bool {
	return s.rules.MaxStalls > 0 && s.stalls >= s.rules.MaxStalls
}
