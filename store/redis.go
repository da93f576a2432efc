package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each row in its own hash so partial updates touch only
// the fields they name, and publishes post-commit snapshots over pub/sub.
//
// key layout:
//
//	hash: hand:{handID}                -> hand row fields
//	hash: hand:{handID}:seat:{pos}     -> seat row fields
//	pub : hand:{handID}:changes        -> JSON Notification per commit
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func handKey(handID string) string {
	return fmt.Sprintf("hand:%s", handID)
}

func seatKey(handID string, position int) string {
	return fmt.Sprintf("hand:%s:seat:%d", handID, position)
}

func seatIndexKey(handID string) string {
	return fmt.Sprintf("hand:%s:seats", handID)
}

func changesChannel(handID string) string {
	return fmt.Sprintf("hand:%s:changes", handID)
}

func (s *RedisStore) SaveHand(ctx context.Context, row HandRow) (HandRow, error) {
	if err := ValidateHandRow(row); err != nil {
		return HandRow{}, err
	}

	key := handKey(row.HandID)
	cc, _ := json.Marshal(row.CommunityCards)

	p := s.rdb.TxPipeline()
	p.HSet(ctx, key, map[string]any{
		"schema_version":    row.SchemaVersion,
		"hand_id":           row.HandID,
		"table_id":          row.TableID,
		FieldPhase:          row.Phase,
		FieldButtonPosition: row.ButtonPosition,
		FieldCurrentBet:     row.CurrentBet,
		FieldPot:            row.Pot,
		FieldCommunityCards: string(cc),
		FieldCurrentTurn:    row.CurrentTurn,
		"updated_at":        time.Now().Format(time.RFC3339Nano),
	})
	version := p.HIncrBy(ctx, key, "version", 1)
	if _, err := p.Exec(ctx); err != nil {
		return HandRow{}, &SyncError{Op: "save hand", Err: err}
	}

	row.Version = version.Val()
	row.UpdatedAt = time.Now()
	s.publish(ctx, Notification{HandID: row.HandID, Hand: cloneHandRow(row)})
	return row, nil
}

func (s *RedisStore) UpdateHandFields(ctx context.Context, handID string, fields Fields) (HandRow, error) {
	key := handKey(handID)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return HandRow{}, &SyncError{Op: "update hand", Err: err}
	}
	if exists == 0 {
		return HandRow{}, &SyncError{Op: "update hand", Err: ErrNotFound}
	}

	// Validate field names and value types before touching the hash.
	var probe HandRow
	probe.SchemaVersion = SchemaVersion
	if err := applyHandFields(&probe, fields); err != nil {
		return HandRow{}, err
	}

	values := make(map[string]any, len(fields)+1)
	for name, value := range fields {
		if name == FieldCommunityCards {
			cc, _ := json.Marshal(value)
			values[name] = string(cc)
			continue
		}
		values[name] = value
	}
	values["updated_at"] = time.Now().Format(time.RFC3339Nano)

	p := s.rdb.TxPipeline()
	p.HSet(ctx, key, values)
	p.HIncrBy(ctx, key, "version", 1)
	if _, err := p.Exec(ctx); err != nil {
		return HandRow{}, &SyncError{Op: "update hand", Err: err}
	}

	row, err := s.GetHand(ctx, handID)
	if err != nil {
		return HandRow{}, err
	}

	s.publish(ctx, Notification{HandID: handID, Hand: cloneHandRow(row)})
	return row, nil
}

func (s *RedisStore) SaveSeat(ctx context.Context, row SeatRow) (SeatRow, error) {
	if err := ValidateSeatRow(row); err != nil {
		return SeatRow{}, err
	}

	key := seatKey(row.HandID, row.Position)

	p := s.rdb.TxPipeline()
	p.HSet(ctx, key, map[string]any{
		"schema_version": row.SchemaVersion,
		"hand_id":        row.HandID,
		"position":       row.Position,
		FieldPlayerID:    row.PlayerID,
		FieldChips:       row.Chips,
		FieldCurrentBet:  row.CurrentBet,
		FieldStatus:      row.Status,
		"updated_at":     time.Now().Format(time.RFC3339Nano),
	})

	version := p.HIncrBy(ctx, key, "version", 1)
	p.SAdd(ctx, seatIndexKey(row.HandID), row.Position)
	if _, err := p.Exec(ctx); err != nil {
		return SeatRow{}, &SyncError{Op: "save seat", Err: err}
	}

	row.Version = version.Val()
	row.UpdatedAt = time.Now()
	s.publish(ctx, Notification{HandID: row.HandID, Seat: cloneSeatRow(row)})
	return row, nil
}

func (s *RedisStore) UpdateSeatFields(ctx context.Context, handID string, position int, fields Fields) (SeatRow, error) {
	key := seatKey(handID, position)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return SeatRow{}, &SyncError{Op: "update seat", Err: err}
	}
	if exists == 0 {
		return SeatRow{}, &SyncError{Op: "update seat", Err: ErrNotFound}
	}

	var probe SeatRow
	probe.SchemaVersion = SchemaVersion
	if err := applySeatFields(&probe, fields); err != nil {
		return SeatRow{}, err
	}

	values := make(map[string]any, len(fields)+1)
	for name, value := range fields {
		values[name] = value
	}
	values["updated_at"] = time.Now().Format(time.RFC3339Nano)

	p := s.rdb.TxPipeline()
	p.HSet(ctx, key, values)
	p.HIncrBy(ctx, key, "version", 1)
	if _, err := p.Exec(ctx); err != nil {
		return SeatRow{}, &SyncError{Op: "update seat", Err: err}
	}

	row, err := s.getSeat(ctx, handID, position)
	if err != nil {
		return SeatRow{}, err
	}

	s.publish(ctx, Notification{HandID: handID, Seat: cloneSeatRow(row)})
	return row, nil
}

func (s *RedisStore) GetHand(ctx context.Context, handID string) (HandRow, error) {
	values, err := s.rdb.HGetAll(ctx, handKey(handID)).Result()
	if err != nil {
		return HandRow{}, &SyncError{Op: "get hand", Err: err}
	}
	if len(values) == 0 {
		return HandRow{}, &SyncError{Op: "get hand", Err: ErrNotFound}
	}

	row, err := handRowFromHash(values)
	if err != nil {
		return HandRow{}, err
	}
	if err := ValidateHandRow(row); err != nil {
		return HandRow{}, err
	}
	return row, nil
}

func (s *RedisStore) GetSeats(ctx context.Context, handID string) ([]SeatRow, error) {
	positions, err := s.rdb.SMembers(ctx, seatIndexKey(handID)).Result()
	if err != nil {
		return nil, &SyncError{Op: "get seats", Err: err}
	}

	var out []SeatRow
	for _, raw := range positions {
		position, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &SyncError{Op: "get seats", Err: err}
		}
		row, err := s.getSeat(ctx, handID, position)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *RedisStore) getSeat(ctx context.Context, handID string, position int) (SeatRow, error) {
	values, err := s.rdb.HGetAll(ctx, seatKey(handID, position)).Result()
	if err != nil {
		return SeatRow{}, &SyncError{Op: "get seat", Err: err}
	}
	if len(values) == 0 {
		return SeatRow{}, &SyncError{Op: "get seat", Err: ErrNotFound}
	}

	row, err := seatRowFromHash(values)
	if err != nil {
		return SeatRow{}, err
	}
	if err := ValidateSeatRow(row); err != nil {
		return SeatRow{}, err
	}
	return row, nil
}

func (s *RedisStore) Watch(ctx context.Context, handID string) (<-chan Notification, error) {
	pubsub := s.rdb.Subscribe(ctx, changesChannel(handID))

	out := make(chan Notification, NumWatchBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var n Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *RedisStore) publish(ctx context.Context, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	s.rdb.Publish(ctx, changesChannel(n.HandID), payload)
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func handRowFromHash(values map[string]string) (HandRow, error) {
	row := HandRow{
		HandID:  values["hand_id"],
		TableID: values["table_id"],
		Phase:   values[FieldPhase],
	}

	var err error
	if row.SchemaVersion, err = atoi(values["schema_version"]); err != nil {
		return HandRow{}, &SyncError{Op: "parse hand", Err: err}
	}
	if row.ButtonPosition, err = atoi(values[FieldButtonPosition]); err != nil {
		return HandRow{}, &SyncError{Op: "parse hand", Err: err}
	}
	if row.CurrentBet, err = atoi(values[FieldCurrentBet]); err != nil {
		return HandRow{}, &SyncError{Op: "parse hand", Err: err}
	}
	if row.Pot, err = atoi(values[FieldPot]); err != nil {
		return HandRow{}, &SyncError{Op: "parse hand", Err: err}
	}
	if row.CurrentTurn, err = atoi(values[FieldCurrentTurn]); err != nil {
		return HandRow{}, &SyncError{Op: "parse hand", Err: err}
	}

	if raw := values[FieldCommunityCards]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &row.CommunityCards); err != nil {
			return HandRow{}, &SyncError{Op: "parse hand", Err: err}
		}
	}

	version, err := strconv.ParseInt(values["version"], 10, 64)
	if err != nil {
		return HandRow{}, &SyncError{Op: "parse hand", Err: err}
	}
	row.Version = version

	if ts := values["updated_at"]; ts != "" {
		row.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}

	return row, nil
}

func seatRowFromHash(values map[string]string) (SeatRow, error) {
	row := SeatRow{
		HandID:   values["hand_id"],
		PlayerID: values[FieldPlayerID],
		Status:   values[FieldStatus],
	}

	var err error
	if row.SchemaVersion, err = atoi(values["schema_version"]); err != nil {
		return SeatRow{}, &SyncError{Op: "parse seat", Err: err}
	}
	if row.Position, err = atoi(values["position"]); err != nil {
		return SeatRow{}, &SyncError{Op: "parse seat", Err: err}
	}
	if row.Chips, err = atoi(values[FieldChips]); err != nil {
		return SeatRow{}, &SyncError{Op: "parse seat", Err: err}
	}
	if row.CurrentBet, err = atoi(values[FieldCurrentBet]); err != nil {
		return SeatRow{}, &SyncError{Op: "parse seat", Err: err}
	}

	version, err := strconv.ParseInt(values["version"], 10, 64)
	if err != nil {
		return SeatRow{}, &SyncError{Op: "parse seat", Err: err}
	}
	row.Version = version

	if ts := values["updated_at"]; ts != "" {
		row.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}

	return row, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing numeric field")
	}
	return strconv.Atoi(s)
}
