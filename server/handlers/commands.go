package handlers

// Command is a client-to-server message accepted over the websocket.
type Command interface {
	Name() string
}

type Identify struct {
	PlayerID   string
	PlayerName string
}

func (c Identify) Name() string { return "IDENTIFY" }

type WatchTable struct {
	TableID string
}

func (c WatchTable) Name() string { return "WATCH_TABLE" }

type UnwatchTable struct {
	TableID string
}

func (c UnwatchTable) Name() string { return "UNWATCH_TABLE" }

type PlayerSeats struct {
	TableID  string
	Position int
	Chips    int
}

func (c PlayerSeats) Name() string { return "PLAYER_SEATS" }

type PlayerLeavesTable struct {
	TableID string
}

func (c PlayerLeavesTable) Name() string { return "PLAYER_LEAVES_TABLE" }

type AddBot struct {
	TableID string
	Chips   int
}

func (c AddBot) Name() string { return "ADD_BOT" }

type StartHand struct {
	TableID string
}

func (c StartHand) Name() string { return "START_HAND" }

type PlayerActs struct {
	TableID string
	Action  string
	Amount  int
}

func (c PlayerActs) Name() string { return "PLAYER_ACTS" }
