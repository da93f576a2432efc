package store

import (
	"fmt"
	"time"
)

// SchemaVersion is bumped whenever the row layout changes. Rows carrying a
// different version are rejected at the boundary.
const SchemaVersion = 1

// HandRow is the persisted form of a hand.
type HandRow struct {
	SchemaVersion  int       `json:"schemaVersion"`
	HandID         string    `json:"handId"`
	TableID        string    `json:"tableId"`
	Phase          string    `json:"phase"`
	ButtonPosition int       `json:"buttonPosition"`
	CurrentBet     int       `json:"currentBet"`
	Pot            int       `json:"pot"`
	CommunityCards []string  `json:"communityCards"`
	CurrentTurn    int       `json:"currentTurn"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SeatRow is the persisted form of one seat within a hand.
type SeatRow struct {
	SchemaVersion int       `json:"schemaVersion"`
	HandID        string    `json:"handId"`
	Position      int       `json:"position"`
	PlayerID      string    `json:"playerId"`
	Chips         int       `json:"chips"`
	CurrentBet    int       `json:"currentBet"`
	Status        string    `json:"status"`
	Version       int64     `json:"version"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Field names accepted by UpdateHandFields.
const (
	FieldPhase          = "phase"
	FieldButtonPosition = "button_position"
	FieldCurrentBet     = "current_bet"
	FieldPot            = "pot"
	FieldCommunityCards = "community_cards"
	FieldCurrentTurn    = "current_turn"
)

// Field names accepted by UpdateSeatFields.
const (
	FieldPlayerID = "player_id"
	FieldChips    = "chips"
	FieldStatus   = "status"
)

// ValidateHandRow rejects rows that cannot be trusted by game logic.
func ValidateHandRow(row HandRow) error {
	if row.SchemaVersion != SchemaVersion {
		return &SyncError{Op: "validate hand", Err: fmt.Errorf("schema version %d, want %d", row.SchemaVersion, SchemaVersion)}
	}
	if row.HandID == "" {
		return &SyncError{Op: "validate hand", Err: fmt.Errorf("missing hand id")}
	}
	if row.Phase == "" {
		return &SyncError{Op: "validate hand", Err: fmt.Errorf("missing phase")}
	}
	switch n := len(row.CommunityCards); n {
	case 0, 3, 4, 5:
	default:
		return &SyncError{Op: "validate hand", Err: fmt.Errorf("impossible community card count %d", n)}
	}
	if row.Pot < 0 || row.CurrentBet < 0 {
		return &SyncError{Op: "validate hand", Err: fmt.Errorf("negative chip amounts")}
	}
	return nil
}

// ValidateSeatRow rejects seat rows that cannot be trusted by game logic.
func ValidateSeatRow(row SeatRow) error {
	if row.SchemaVersion != SchemaVersion {
		return &SyncError{Op: "validate seat", Err: fmt.Errorf("schema version %d, want %d", row.SchemaVersion, SchemaVersion)}
	}
	if row.HandID == "" {
		return &SyncError{Op: "validate seat", Err: fmt.Errorf("missing hand id")}
	}
	if row.Position < 0 {
		return &SyncError{Op: "validate seat", Err: fmt.Errorf("negative position")}
	}
	if row.Chips < 0 || row.CurrentBet < 0 {
		return &SyncError{Op: "validate seat", Err: fmt.Errorf("negative chip amounts")}
	}
	switch row.Status {
	case "empty", "waiting", "to_act", "acted", "all_in", "folded":
	default:
		return &SyncError{Op: "validate seat", Err: fmt.Errorf("unknown seat status %q", row.Status)}
	}
	return nil
}

// applyHandFields folds a partial update into a hand row.
func applyHandFields(row *HandRow, fields Fields) error {
	for name, value := range fields {
		switch name {
		case FieldPhase:
			s, ok := value.(string)
			if !ok {
				return badField(name, value)
			}
			row.Phase = s
		case FieldButtonPosition:
			n, ok := toInt(value)
			if !ok {
				return badField(name, value)
			}
			row.ButtonPosition = n
		case FieldCurrentBet:
			n, ok := toInt(value)
			if !ok {
				return badField(name, value)
			}
			row.CurrentBet = n
		case FieldPot:
			n, ok := toInt(value)
			if !ok {
				return badField(name, value)
			}
			row.Pot = n
		case FieldCommunityCards:
			cc, ok := value.([]string)
			if !ok {
				return badField(name, value)
			}
			row.CommunityCards = append([]string(nil), cc...)
		case FieldCurrentTurn:
			n, ok := toInt(value)
			if !ok {
				return badField(name, value)
			}
			row.CurrentTurn = n
		default:
			return &SyncError{Op: "update hand", Err: fmt.Errorf("unknown field %q", name)}
		}
	}
	return nil
}

// applySeatFields folds a partial update into a seat row.
func applySeatFields(row *SeatRow, fields Fields) error {
	for name, value := range fields {
		switch name {
		case FieldPlayerID:
			s, ok := value.(string)
			if !ok {
				return badField(name, value)
			}
			row.PlayerID = s
		case FieldChips:
			n, ok := toInt(value)
			if !ok {
				return badField(name, value)
			}
			row.Chips = n
		case FieldCurrentBet:
			n, ok := toInt(value)
			if !ok {
				return badField(name, value)
			}
			row.CurrentBet = n
		case FieldStatus:
			s, ok := value.(string)
			if !ok {
				return badField(name, value)
			}
			row.Status = s
		default:
			return &SyncError{Op: "update seat", Err: fmt.Errorf("unknown field %q", name)}
		}
	}
	return nil
}

func badField(name string, value any) error {
	return &SyncError{Op: "update", Err: fmt.Errorf("field %q: unexpected value type %T", name, value)}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
