package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/service"
	"github.com/wricardo/cellwar/transport/websocket"
)

// HealthMessage is the body of GET /
const HealthMessage = "Hello, Cell War Backend is running!"

// ActionResultHeader carries the advisory outcome code of an action
const ActionResultHeader = "X-Action-Result"

// maxBodyBytes bounds request bodies; a 100x100 imported map fits comfortably.
const maxBodyBytes = 8 << 20

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	handler http.Handler
	log     logrus.FieldLogger
	origins []string
}

// Option configures the server
type Option func(*Server)

// WithLogger sets the request and error logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// WithAllowedOrigins restricts CORS to the given origins. The default allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// NewServer creates a new API server. hub may be nil, which disables /ws and broadcasts.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logrus.StandardLogger(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{ActionResultHeader},
		MaxAge:         300,
	})
	s.handler = corsHandler(LogMiddleware(s.log)(s.router))
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Games
	api.HandleFunc("/game", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/game/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/game/{id}/end_turn", s.handleEndTurn).Methods("POST")
	api.HandleFunc("/game/{id}/action", s.handleAction).Methods("POST")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")

	// Map library
	api.HandleFunc("/maps", s.handleListMaps).Methods("GET")
	api.HandleFunc("/maps", s.handleSaveMap).Methods("POST")
	api.HandleFunc("/maps/{name}", s.handleGetMap).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and engine errors to status codes
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		respondError(w, http.StatusNotFound, "Game not found")
	case errors.Is(err, service.ErrMapNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case engine.IsValidationError(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.WithFields(logrus.Fields{"path": r.URL.Path, "error": err}).Error("request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeBody decodes an optional JSON body. It reports false after writing a 400.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) (present, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return false, true
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false, false
	}
	return true, true
}

// createGameResponse is the game view plus the fields a client needs to follow up
type createGameResponse struct {
	*engine.GameState
	GameID string `json:"gameId"`
	Rules  string `json:"rules"`
	Seed   int64  `json:"seed"`
}

// Game Handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var opts service.CreateGameOptions
	if _, ok := decodeBody(w, r, &opts); !ok {
		return
	}

	info, err := s.service.CreateGame(r.Context(), opts)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, createGameResponse{
		GameState: info.State,
		GameID:    info.ID,
		Rules:     info.Rules,
		Seed:      info.Seed,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	state, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	result, err := s.service.EndTurn(r.Context(), gameID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastState(result.GameID, websocket.EventTurnEnded, result.Version, result.State)
	}

	respondJSON(w, http.StatusOK, result.State)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req engine.ActionRequest
	present, ok := decodeBody(w, r, &req)
	if !ok {
		return
	}
	if !present {
		respondError(w, http.StatusBadRequest, "Invalid action data")
		return
	}

	action, err := req.Decode()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.PerformAction(r.Context(), gameID, action)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastState(result.GameID, websocket.EventAction, result.Version, result.State)
		if result.Outcome.Applied() && result.State.GameStatus == engine.StatusFinished {
			s.hub.BroadcastEvent(result.GameID, websocket.EventGameOver, result.Version, map[string]string{"winner": action.Actor()})
		}
	}

	w.Header().Set(ActionResultHeader, string(result.Outcome.Code))
	respondJSON(w, http.StatusOK, result.State)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"games": games,
	})
}

// Map Handlers

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.service.ListMaps(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, maps)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	tmpl, err := s.service.LoadMap(r.Context(), name)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleSaveMap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
		engine.MapTemplate
	}
	present, ok := decodeBody(w, r, &req)
	if !ok {
		return
	}
	if !present {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mapID := req.ID
	if mapID == "" {
		mapID = req.Name
	}
	if mapID == "" {
		respondError(w, http.StatusBadRequest, "Map id or name is required")
		return
	}

	if err := s.service.SaveMap(r.Context(), mapID, &req.MapTemplate); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Map saved successfully",
		"map_id":  mapID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotFound, "websocket updates are disabled")
		return
	}

	gameID := strings.ToLower(r.URL.Query().Get("game"))
	if gameID == "" {
		respondError(w, http.StatusBadRequest, "game parameter required")
		return
	}

	state, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.hub.ServeWS(w, r, gameID, state)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, HealthMessage)
}
