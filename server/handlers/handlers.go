package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lazharichir/holdem/domain"
	"github.com/lazharichir/holdem/game"
	"github.com/lazharichir/holdem/server/connection"
)

const defaultBuyIn = 1_000

// CommandRouter routes incoming websocket commands to the right table
// engine.
type CommandRouter struct {
	lobby    *game.Lobby
	connMgr  *connection.Manager
	log      *log.Logger
	botCount atomic.Int64
}

func NewCommandRouter(lobby *game.Lobby, connMgr *connection.Manager, logger *log.Logger) *CommandRouter {
	return &CommandRouter{
		lobby:   lobby,
		connMgr: connMgr,
		log:     logger,
	}
}

// HandleCommand decodes one message and dispatches it.
func (r *CommandRouter) HandleCommand(client *connection.Client, message []byte) error {
	var baseCmd struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(message, &baseCmd); err != nil {
		return err
	}

	switch baseCmd.Name {
	case Identify{}.Name():
		var cmd Identify
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleIdentify(client, cmd)

	case WatchTable{}.Name():
		var cmd WatchTable
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleWatchTable(client, cmd)

	case UnwatchTable{}.Name():
		var cmd UnwatchTable
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleUnwatchTable(client, cmd)

	case PlayerSeats{}.Name():
		var cmd PlayerSeats
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handlePlayerSeats(client, cmd)

	case PlayerLeavesTable{}.Name():
		var cmd PlayerLeavesTable
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handlePlayerLeavesTable(client, cmd)

	case AddBot{}.Name():
		var cmd AddBot
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleAddBot(client, cmd)

	case StartHand{}.Name():
		var cmd StartHand
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handleStartHand(client, cmd)

	case PlayerActs{}.Name():
		var cmd PlayerActs
		if err := json.Unmarshal(message, &cmd); err != nil {
			return err
		}
		return r.handlePlayerActs(client, cmd)

	default:
		return fmt.Errorf("unknown command type %q", baseCmd.Name)
	}
}

func (r *CommandRouter) handleIdentify(client *connection.Client, cmd Identify) error {
	if cmd.PlayerID == "" {
		return errors.New("playerId is required")
	}
	if !r.connMgr.IdentifyPlayer(client.ID, cmd.PlayerID) {
		return errors.New("connection is not registered")
	}
	client.PlayerID = cmd.PlayerID
	client.PlayerName = cmd.PlayerName
	r.log.Info("player identified", "player", cmd.PlayerID, "client", client.ID)
	return nil
}

func (r *CommandRouter) handleWatchTable(client *connection.Client, cmd WatchTable) error {
	if _, err := r.lobby.GetTable(cmd.TableID); err != nil {
		return err
	}
	r.connMgr.WatchTable(client.ID, cmd.TableID)
	return nil
}

func (r *CommandRouter) handleUnwatchTable(client *connection.Client, cmd UnwatchTable) error {
	r.connMgr.UnwatchTable(client.ID, cmd.TableID)
	return nil
}

func (r *CommandRouter) handlePlayerSeats(client *connection.Client, cmd PlayerSeats) error {
	if client.PlayerID == "" {
		return errors.New("identify before seating")
	}

	engine, err := r.lobby.GetTable(cmd.TableID)
	if err != nil {
		return err
	}

	chips := cmd.Chips
	if chips <= 0 {
		chips = defaultBuyIn
	}

	name := client.PlayerName
	if name == "" {
		name = client.PlayerID
	}
	if err := engine.SeatPlayer(client.PlayerID, name, cmd.Position, chips, false); err != nil {
		return err
	}

	r.connMgr.WatchTable(client.ID, cmd.TableID)
	return nil
}

func (r *CommandRouter) handlePlayerLeavesTable(client *connection.Client, cmd PlayerLeavesTable) error {
	engine, err := r.lobby.GetTable(cmd.TableID)
	if err != nil {
		return err
	}

	if err := engine.Leave(client.PlayerID); err != nil {
		return err
	}

	r.connMgr.UnwatchTable(client.ID, cmd.TableID)
	return nil
}

func (r *CommandRouter) handleAddBot(client *connection.Client, cmd AddBot) error {
	engine, err := r.lobby.GetTable(cmd.TableID)
	if err != nil {
		return err
	}

	chips := cmd.Chips
	if chips <= 0 {
		chips = defaultBuyIn
	}

	n := r.botCount.Add(1)
	botID := "bot-" + uuid.NewString()
	return engine.SeatPlayer(botID, fmt.Sprintf("Bot %d", n), -1, chips, true)
}

func (r *CommandRouter) handleStartHand(client *connection.Client, cmd StartHand) error {
	engine, err := r.lobby.GetTable(cmd.TableID)
	if err != nil {
		return err
	}
	return engine.StartHand()
}

func (r *CommandRouter) handlePlayerActs(client *connection.Client, cmd PlayerActs) error {
	if client.PlayerID == "" {
		return errors.New("identify before acting")
	}

	engine, err := r.lobby.GetTable(cmd.TableID)
	if err != nil {
		return err
	}

	return engine.Act(client.PlayerID, domain.ActionKind(cmd.Action), cmd.Amount)
}
