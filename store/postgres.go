package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const notifyChannel = "hand_changes"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS hand_rows (
	hand_id         text PRIMARY KEY,
	schema_version  int NOT NULL,
	table_id        text NOT NULL,
	phase           text NOT NULL,
	button_position int NOT NULL,
	current_bet     int NOT NULL,
	pot             int NOT NULL,
	community_cards jsonb NOT NULL DEFAULT '[]',
	current_turn    int NOT NULL,
	version         bigint NOT NULL DEFAULT 0,
	updated_at      timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS seat_rows (
	hand_id        text NOT NULL,
	position       int NOT NULL,
	schema_version int NOT NULL,
	player_id      text NOT NULL DEFAULT '',
	chips          int NOT NULL,
	current_bet    int NOT NULL,
	status         text NOT NULL,
	version        bigint NOT NULL DEFAULT 0,
	updated_at     timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (hand_id, position)
);
`

// PostgresStore persists rows in two tables and pushes post-commit snapshots
// over LISTEN/NOTIFY. NOTIFY only fires once the surrounding transaction
// commits, so watchers never observe a write that later rolled back.
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore connects and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &SyncError{Op: "open postgres", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &SyncError{Op: "ping postgres", Err: err}
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, &SyncError{Op: "migrate postgres", Err: err}
	}
	return &PostgresStore{db: db, dsn: dsn}, nil
}

func (s *PostgresStore) SaveHand(ctx context.Context, row HandRow) (HandRow, error) {
	if err := ValidateHandRow(row); err != nil {
		return HandRow{}, err
	}

	cc, _ := json.Marshal(row.CommunityCards)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return HandRow{}, &SyncError{Op: "save hand", Err: err}
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO hand_rows
			(hand_id, schema_version, table_id, phase, button_position,
			 current_bet, pot, community_cards, current_turn, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		ON CONFLICT (hand_id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			table_id = EXCLUDED.table_id,
			phase = EXCLUDED.phase,
			button_position = EXCLUDED.button_position,
			current_bet = EXCLUDED.current_bet,
			pot = EXCLUDED.pot,
			community_cards = EXCLUDED.community_cards,
			current_turn = EXCLUDED.current_turn,
			version = hand_rows.version + 1,
			updated_at = now()
		RETURNING version, updated_at`,
		row.HandID, row.SchemaVersion, row.TableID, row.Phase, row.ButtonPosition,
		row.CurrentBet, row.Pot, cc, row.CurrentTurn,
	).Scan(&row.Version, &row.UpdatedAt)
	if err != nil {
		return HandRow{}, &SyncError{Op: "save hand", Err: err}
	}

	if err := notify(ctx, tx, Notification{HandID: row.HandID, Hand: cloneHandRow(row)}); err != nil {
		return HandRow{}, err
	}
	if err := tx.Commit(); err != nil {
		return HandRow{}, &SyncError{Op: "save hand", Err: err}
	}
	return row, nil
}

func (s *PostgresStore) UpdateHandFields(ctx context.Context, handID string, fields Fields) (HandRow, error) {
	// Validate names and value types before building SQL.
	var probe HandRow
	probe.SchemaVersion = SchemaVersion
	if err := applyHandFields(&probe, fields); err != nil {
		return HandRow{}, err
	}

	set := make([]string, 0, len(fields)+2)
	args := make([]any, 0, len(fields)+1)
	args = append(args, handID)
	for name, value := range fields {
		if name == FieldCommunityCards {
			value, _ = json.Marshal(value)
		}
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	set = append(set, "version = version + 1", "updated_at = now()")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return HandRow{}, &SyncError{Op: "update hand", Err: err}
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE hand_rows SET %s WHERE hand_id = $1
		RETURNING hand_id, schema_version, table_id, phase, button_position,
			current_bet, pot, community_cards, current_turn, version, updated_at`,
		strings.Join(set, ", "))

	row, err := scanHandRow(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HandRow{}, &SyncError{Op: "update hand", Err: ErrNotFound}
		}
		return HandRow{}, &SyncError{Op: "update hand", Err: err}
	}

	if err := notify(ctx, tx, Notification{HandID: handID, Hand: cloneHandRow(row)}); err != nil {
		return HandRow{}, err
	}
	if err := tx.Commit(); err != nil {
		return HandRow{}, &SyncError{Op: "update hand", Err: err}
	}
	return row, nil
}

func (s *PostgresStore) SaveSeat(ctx context.Context, row SeatRow) (SeatRow, error) {
	if err := ValidateSeatRow(row); err != nil {
		return SeatRow{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SeatRow{}, &SyncError{Op: "save seat", Err: err}
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO seat_rows
			(hand_id, position, schema_version, player_id, chips, current_bet, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (hand_id, position) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			player_id = EXCLUDED.player_id,
			chips = EXCLUDED.chips,
			current_bet = EXCLUDED.current_bet,
			status = EXCLUDED.status,
			version = seat_rows.version + 1,
			updated_at = now()
		RETURNING version, updated_at`,
		row.HandID, row.Position, row.SchemaVersion, row.PlayerID,
		row.Chips, row.CurrentBet, row.Status,
	).Scan(&row.Version, &row.UpdatedAt)
	if err != nil {
		return SeatRow{}, &SyncError{Op: "save seat", Err: err}
	}

	if err := notify(ctx, tx, Notification{HandID: row.HandID, Seat: cloneSeatRow(row)}); err != nil {
		return SeatRow{}, err
	}
	if err := tx.Commit(); err != nil {
		return SeatRow{}, &SyncError{Op: "save seat", Err: err}
	}
	return row, nil
}

func (s *PostgresStore) UpdateSeatFields(ctx context.Context, handID string, position int, fields Fields) (SeatRow, error) {
	var probe SeatRow
	probe.SchemaVersion = SchemaVersion
	if err := applySeatFields(&probe, fields); err != nil {
		return SeatRow{}, err
	}

	set := make([]string, 0, len(fields)+2)
	args := make([]any, 0, len(fields)+2)
	args = append(args, handID, position)
	for name, value := range fields {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	set = append(set, "version = version + 1", "updated_at = now()")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SeatRow{}, &SyncError{Op: "update seat", Err: err}
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE seat_rows SET %s WHERE hand_id = $1 AND position = $2
		RETURNING hand_id, position, schema_version, player_id, chips,
			current_bet, status, version, updated_at`,
		strings.Join(set, ", "))

	row, err := scanSeatRow(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SeatRow{}, &SyncError{Op: "update seat", Err: ErrNotFound}
		}
		return SeatRow{}, &SyncError{Op: "update seat", Err: err}
	}

	if err := notify(ctx, tx, Notification{HandID: handID, Seat: cloneSeatRow(row)}); err != nil {
		return SeatRow{}, err
	}
	if err := tx.Commit(); err != nil {
		return SeatRow{}, &SyncError{Op: "update seat", Err: err}
	}
	return row, nil
}

func (s *PostgresStore) GetHand(ctx context.Context, handID string) (HandRow, error) {
	row, err := scanHandRow(s.db.QueryRowContext(ctx, `
		SELECT hand_id, schema_version, table_id, phase, button_position,
			current_bet, pot, community_cards, current_turn, version, updated_at
		FROM hand_rows WHERE hand_id = $1`, handID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HandRow{}, &SyncError{Op: "get hand", Err: ErrNotFound}
		}
		return HandRow{}, &SyncError{Op: "get hand", Err: err}
	}
	if err := ValidateHandRow(row); err != nil {
		return HandRow{}, err
	}
	return row, nil
}

func (s *PostgresStore) GetSeats(ctx context.Context, handID string) ([]SeatRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hand_id, position, schema_version, player_id, chips,
			current_bet, status, version, updated_at
		FROM seat_rows WHERE hand_id = $1 ORDER BY position`, handID)
	if err != nil {
		return nil, &SyncError{Op: "get seats", Err: err}
	}
	defer rows.Close()

	var out []SeatRow
	for rows.Next() {
		row, err := scanSeatRow(rows)
		if err != nil {
			return nil, &SyncError{Op: "get seats", Err: err}
		}
		if err := ValidateSeatRow(row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &SyncError{Op: "get seats", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) Watch(ctx context.Context, handID string) (<-chan Notification, error) {
	listener := pq.NewListener(s.dsn, time.Second, 30*time.Second, nil)
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, &SyncError{Op: "watch", Err: err}
	}

	out := make(chan Notification, NumWatchBuffer)
	go func() {
		defer close(out)
		defer listener.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-listener.Notify:
				if !ok {
					return
				}
				if ev == nil {
					// Reconnect marker; watchers resync from a later snapshot.
					continue
				}
				var n Notification
				if err := json.Unmarshal([]byte(ev.Extra), &n); err != nil {
					continue
				}
				if n.HandID != handID {
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

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func notify(ctx context.Context, tx *sql.Tx, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return &SyncError{Op: "notify", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(payload)); err != nil {
		return &SyncError{Op: "notify", Err: err}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHandRow(r rowScanner) (HandRow, error) {
	var row HandRow
	var cc []byte
	err := r.Scan(&row.HandID, &row.SchemaVersion, &row.TableID, &row.Phase,
		&row.ButtonPosition, &row.CurrentBet, &row.Pot, &cc,
		&row.CurrentTurn, &row.Version, &row.UpdatedAt)
	if err != nil {
		return HandRow{}, err
	}
	if len(cc) > 0 {
		if err := json.Unmarshal(cc, &row.CommunityCards); err != nil {
			return HandRow{}, err
		}
	}
	return row, nil
}

func scanSeatRow(r rowScanner) (SeatRow, error) {
	var row SeatRow
	err := r.Scan(&row.HandID, &row.Position, &row.SchemaVersion, &row.PlayerID,
		&row.Chips, &row.CurrentBet, &row.Status, &row.Version, &row.UpdatedAt)
	if err != nil {
		return SeatRow{}, err
	}
	return row, nil
}
