package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lazharichir/holdem/domain"
	"github.com/lazharichir/holdem/game"
	"github.com/lazharichir/holdem/server/connection"
	"github.com/lazharichir/holdem/server/events"
	"github.com/lazharichir/holdem/server/handlers"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin checks are handled by the edge proxy
	},
}

// Server exposes the lobby over HTTP and websocket.
type Server struct {
	lobby      *game.Lobby
	rules      domain.TableRules
	connMgr    *connection.Manager
	cmdRouter  *handlers.CommandRouter
	dispatcher *events.Dispatcher
	log        *log.Logger
}

// NewServer wires the lobby to the connection layer. Every table created
// afterwards dispatches its events to connected clients.
func NewServer(lobby *game.Lobby, rules domain.TableRules, logger *log.Logger) *Server {
	connMgr := connection.NewManager()
	dispatcher := events.NewDispatcher(connMgr, logger)
	cmdRouter := handlers.NewCommandRouter(lobby, connMgr, logger)

	lobby.RegisterEventHandler(dispatcher.HandleEvent)

	return &Server{
		lobby:      lobby,
		rules:      rules,
		connMgr:    connMgr,
		cmdRouter:  cmdRouter,
		dispatcher: dispatcher,
		log:        logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))

	router.GET("/health", s.handleHealth)
	router.GET("/ws", s.handleWebSocket)

	api := router.Group("/api")
	{
		api.GET("/tables", s.handleGetTables)
		api.POST("/tables", s.handleCreateTable)
		api.POST("/tables/:id/seat", s.handleSeat)
		api.POST("/tables/:id/leave", s.handleLeave)
		api.POST("/tables/:id/bots", s.handleAddBot)
		api.POST("/tables/:id/start", s.handleStartHand)
		api.POST("/tables/:id/act", s.handleAct)
		api.GET("/tables/:id/state", s.handleState)
	}

	return router
}

// Start runs the connection manager and serves HTTP until the context ends.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.connMgr.Start(ctx)

	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	s.log.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CreateTableRequest struct {
	Name   string `json:"name" binding:"required"`
	MinBet int    `json:"minBet"`
}

func (s *Server) handleCreateTable(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rules := s.rules
	if req.MinBet > 0 {
		rules.MinBet = req.MinBet
	}

	engine := s.lobby.CreateTable(req.Name, rules)
	snap, err := engine.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (s *Server) handleGetTables(c *gin.Context) {
	c.JSON(http.StatusOK, s.lobby.Tables())
}

type SeatRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
	Name     string `json:"playerName"`
	Position int    `json:"position"`
	Chips    int    `json:"chips" binding:"required"`
}

func (s *Server) handleSeat(c *gin.Context) {
	engine, err := s.lobby.GetTable(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req SeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := req.Name
	if name == "" {
		name = req.PlayerID
	}

	if err := engine.SeatPlayer(req.PlayerID, name, req.Position, req.Chips, false); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type LeaveRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
}

func (s *Server) handleLeave(c *gin.Context) {
	engine, err := s.lobby.GetTable(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := engine.Leave(req.PlayerID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type AddBotRequest struct {
	Chips int `json:"chips"`
}

func (s *Server) handleAddBot(c *gin.Context) {
	engine, err := s.lobby.GetTable(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req AddBotRequest
	// The body is optional; a missing one means default chips.
	_ = c.ShouldBindJSON(&req)
	chips := req.Chips
	if chips <= 0 {
		chips = 1_000
	}

	botID := "bot-" + uuid.NewString()
	if err := engine.SeatPlayer(botID, "Bot", -1, chips, true); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playerId": botID})
}

func (s *Server) handleStartHand(c *gin.Context) {
	engine, err := s.lobby.GetTable(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err := engine.StartHand(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type ActRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
	Action   string `json:"action" binding:"required"`
	Amount   int    `json:"amount"`
}

func (s *Server) handleAct(c *gin.Context) {
	engine, err := s.lobby.GetTable(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req ActRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := engine.Act(req.PlayerID, domain.ActionKind(req.Action), req.Amount); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleState(c *gin.Context) {
	engine, err := s.lobby.GetTable(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	view, err := engine.ViewFor(c.Query("player"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleWebSocket upgrades the connection and starts its pumps.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade", "err", err)
		return
	}

	client := &connection.Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	s.connMgr.Register <- client

	go s.readPump(client)
	go s.writePump(client)
}

func (s *Server) readPump(client *connection.Client) {
	defer func() {
		s.connMgr.Unregister <- client
		client.Conn.Close()
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket read", "client", client.ID, "err", err)
			}
			break
		}

		if err := s.cmdRouter.HandleCommand(client, message); err != nil {
			s.log.Warn("command failed", "client", client.ID, "err", err)
			s.sendError(client, err)
		}
	}
}

func (s *Server) writePump(client *connection.Client) {
	defer client.Conn.Close()

	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			s.log.Warn("websocket write", "client", client.ID, "err", err)
			return
		}
	}
	client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (s *Server) sendError(client *connection.Client, err error) {
	payload := []byte(`{"name":"ERROR","payload":{"error":` + jsonQuote(err.Error()) + `}}`)
	select {
	case client.Send <- payload:
	default:
	}
}

func jsonQuote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `"error"`
	}
	return string(b)
}
