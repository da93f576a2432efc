package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store. It is the default
// backend for tests and single-process runs.
type MemoryStore struct {
	mu       sync.RWMutex
	hands    map[string]HandRow
	seats    map[string]map[int]SeatRow
	watchers map[string][]*memoryWatcher
	closed   bool
}

type memoryWatcher struct {
	handID string
	ch     chan Notification
	done   <-chan struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hands:    make(map[string]HandRow),
		seats:    make(map[string]map[int]SeatRow),
		watchers: make(map[string][]*memoryWatcher),
	}
}

func (s *MemoryStore) SaveHand(_ context.Context, row HandRow) (HandRow, error) {
	if err := ValidateHandRow(row); err != nil {
		return HandRow{}, err
	}

	s.mu.Lock()
	previous, exists := s.hands[row.HandID]
	if exists {
		row.Version = previous.Version + 1
	} else {
		row.Version = 1
	}
	row.UpdatedAt = time.Now()
	s.hands[row.HandID] = row
	s.mu.Unlock()

	s.publish(Notification{HandID: row.HandID, Hand: cloneHandRow(row)})
	return row, nil
}

func (s *MemoryStore) UpdateHandFields(_ context.Context, handID string, fields Fields) (HandRow, error) {
	s.mu.Lock()
	row, exists := s.hands[handID]
	if !exists {
		s.mu.Unlock()
		return HandRow{}, &SyncError{Op: "update hand", Err: ErrNotFound}
	}

	if err := applyHandFields(&row, fields); err != nil {
		s.mu.Unlock()
		return HandRow{}, err
	}

	row.Version++
	row.UpdatedAt = time.Now()
	s.hands[handID] = row
	s.mu.Unlock()

	s.publish(Notification{HandID: handID, Hand: cloneHandRow(row)})
	return row, nil
}

func (s *MemoryStore) SaveSeat(_ context.Context, row SeatRow) (SeatRow, error) {
	if err := ValidateSeatRow(row); err != nil {
		return SeatRow{}, err
	}

	s.mu.Lock()
	byPos, exists := s.seats[row.HandID]
	if !exists {
		byPos = make(map[int]SeatRow)
		s.seats[row.HandID] = byPos
	}
	if previous, ok := byPos[row.Position]; ok {
		row.Version = previous.Version + 1
	} else {
		row.Version = 1
	}
	row.UpdatedAt = time.Now()
	byPos[row.Position] = row
	s.mu.Unlock()

	s.publish(Notification{HandID: row.HandID, Seat: cloneSeatRow(row)})
	return row, nil
}

func (s *MemoryStore) UpdateSeatFields(_ context.Context, handID string, position int, fields Fields) (SeatRow, error) {
	s.mu.Lock()
	byPos, exists := s.seats[handID]
	if !exists {
		s.mu.Unlock()
		return SeatRow{}, &SyncError{Op: "update seat", Err: ErrNotFound}
	}
	row, exists := byPos[position]
	if !exists {
		s.mu.Unlock()
		return SeatRow{}, &SyncError{Op: "update seat", Err: ErrNotFound}
	}

	if err := applySeatFields(&row, fields); err != nil {
		s.mu.Unlock()
		return SeatRow{}, err
	}

	row.Version++
	row.UpdatedAt = time.Now()
	byPos[position] = row
	s.mu.Unlock()

	s.publish(Notification{HandID: handID, Seat: cloneSeatRow(row)})
	return row, nil
}

func (s *MemoryStore) GetHand(_ context.Context, handID string) (HandRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, exists := s.hands[handID]
	if !exists {
		return HandRow{}, &SyncError{Op: "get hand", Err: ErrNotFound}
	}
	return *cloneHandRow(row), nil
}

func (s *MemoryStore) GetSeats(_ context.Context, handID string) ([]SeatRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPos, exists := s.seats[handID]
	if !exists {
		return nil, nil
	}

	out := make([]SeatRow, 0, len(byPos))
	for _, row := range byPos {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// NumWatchBuffer is the per-watcher notification buffer size.
const NumWatchBuffer = 128

func (s *MemoryStore) Watch(ctx context.Context, handID string) (<-chan Notification, error) {
	w := &memoryWatcher{
		handID: handID,
		ch:     make(chan Notification, NumWatchBuffer),
		done:   ctx.Done(),
	}

	s.mu.Lock()
	s.watchers[handID] = append(s.watchers[handID], w)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		list := s.watchers[handID]
		for i, candidate := range list {
			if candidate == w {
				s.watchers[handID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(w.ch)
	}()

	return w.ch, nil
}

func (s *MemoryStore) publish(n Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.watchers[n.HandID] {
		select {
		case w.ch <- n:
		case <-w.done:
		default:
			// Watcher fell too far behind; it will resync from a later snapshot.
		}
	}
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneHandRow(row HandRow) *HandRow {
	out := row
	out.CommunityCards = append([]string(nil), row.CommunityCards...)
	return &out
}

func cloneSeatRow(row SeatRow) *SeatRow {
	out := row
	return &out
}
