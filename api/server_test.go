package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/cellwar/game/engine"
	"github.com/wricardo/cellwar/game/maps"
	"github.com/wricardo/cellwar/game/registry"
	"github.com/wricardo/cellwar/game/service"
	"github.com/wricardo/cellwar/transport/websocket"
)

// MockGameService implements service.GameService for testing error paths
type MockGameService struct {
	service.GameService
	GetGameFunc   func(ctx context.Context, gameID string) (*engine.GameState, error)
	ListGamesFunc func(ctx context.Context) ([]*service.GameSummary, error)
}

func (m *MockGameService) GetGame(ctx context.Context, gameID string) (*engine.GameState, error) {
	return m.GetGameFunc(ctx, gameID)
}

func (m *MockGameService) ListGames(ctx context.Context) ([]*service.GameSummary, error) {
	return m.ListGamesFunc(ctx)
}

type testEnv struct {
	server  *Server
	service service.GameService
	library *maps.Manager
}

func newTestEnv(t *testing.T, hub *websocket.Hub) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()
	library, err := maps.NewManager(t.TempDir())
	require.NoError(t, err)
	svc := service.NewGameService(registry.New(), library, service.WithLogger(log))
	return &testEnv{
		server:  NewServer(svc, hub, WithLogger(log)),
		service: svc,
		library: library,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

// createGame returns the id and view of a new game
func (e *testEnv) createGame(t *testing.T, body interface{}) (string, *engine.GameState) {
	t.Helper()
	w := e.do(t, "POST", "/api/game", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		GameID string `json:"gameId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var state engine.GameState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return resp.GameID, &state
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) *engine.GameState {
	t.Helper()
	var state engine.GameState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return &state
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, HealthMessage, w.Body.String())
}

func TestCreateGame(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, "POST", "/api/game", map[string]interface{}{"type": "standard", "seed": 5})
	require.Equal(t, http.StatusCreated, w.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, key := range []string{"gameId", "players", "cells", "currentPlayerId", "turnNumber", "gameStatus", "rules", "seed"} {
		assert.Contains(t, raw, key)
	}
	assert.JSONEq(t, `"standard"`, string(raw["rules"]))
	assert.JSONEq(t, `5`, string(raw["seed"]))

	// Players keep turn order on the wire
	players := string(raw["players"])
	assert.Less(t, strings.Index(players, `"player1"`), strings.Index(players, `"player2"`))

	state := decodeState(t, w)
	assert.Len(t, state.Cells, engine.StandardGridSize)
	assert.Equal(t, "player1", state.CurrentPlayerID)
	assert.Equal(t, engine.StatusActive, state.GameStatus)
}

func TestCreateGame_EmptyBodyUsesDefaults(t *testing.T) {
	env := newTestEnv(t, nil)

	id, state := env.createGame(t, nil)
	assert.NotEmpty(t, id)
	assert.Len(t, state.Cells, engine.StandardGridSize)
}

func TestCreateGame_BadInput(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, "POST", "/api/game", `{"type":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/game", map[string]string{"rules": "chess"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/game", `{"data":[[{"x":0,"y":0}],[{"x":1,"y":0}]]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation: data")

	w = env.do(t, "POST", "/api/game", map[string]string{"map": "nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateGame_ImportedData(t *testing.T) {
	env := newTestEnv(t, nil)

	_, state := env.createGame(t, `{"data":[[{"x":0,"y":0},{"x":0,"y":1,"type":"water"}],[{"x":1,"y":0,"ownerId":"player2"},{"x":1,"y":1}]]}`)
	require.Len(t, state.Cells, 2)
	assert.Equal(t, engine.Water, state.Cells[0][1].Type)
	assert.Equal(t, "player2", state.Cells[1][0].OwnerID)
	assert.Equal(t, engine.Plain, state.Cells[1][1].Type)
}

func TestGetGame(t *testing.T) {
	env := newTestEnv(t, nil)
	id, created := env.createGame(t, map[string]interface{}{"seed": 9})

	w := env.do(t, "GET", "/api/game/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.Cells, decodeState(t, w).Cells)

	w = env.do(t, "GET", "/api/game/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Game not found"}`, w.Body.String())
}

func TestActionAndEndTurnFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	id, _ := env.createGame(t, map[string]string{"type": "empty"})

	w := env.do(t, "POST", "/api/game/"+id+"/action", map[string]interface{}{
		"type": "CAPTURE", "playerId": "player1", "cell": map[string]int{"x": 4, "y": 2},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "applied", w.Header().Get(ActionResultHeader))

	state := decodeState(t, w)
	assert.Equal(t, "player1", state.Cells[4][2].OwnerID)
	p1, _ := state.Players.Get("player1")
	assert.Equal(t, 9, p1.Gold)

	w = env.do(t, "POST", "/api/game/"+id+"/end_turn", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state = decodeState(t, w)
	assert.Equal(t, "player2", state.CurrentPlayerID)
	assert.Equal(t, 0, state.TurnNumber)

	// Out of turn: 200, state unchanged, advisory code only
	w = env.do(t, "POST", "/api/game/"+id+"/action", map[string]interface{}{
		"type": "CAPTURE", "playerId": "player1", "cell": map[string]int{"x": 5, "y": 2},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not_your_turn", w.Header().Get(ActionResultHeader))
	assert.Empty(t, decodeState(t, w).Cells[5][2].OwnerID)

	w = env.do(t, "POST", "/api/game/"+id+"/end_turn", nil)
	assert.Equal(t, 1, decodeState(t, w).TurnNumber)
}

func TestAction_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	id, _ := env.createGame(t, map[string]string{"type": "empty"})
	path := "/api/game/" + id + "/action"

	tests := []struct {
		name   string
		body   interface{}
		status int
		msg    string
	}{
		{"empty body", nil, http.StatusBadRequest, "Invalid action data"},
		{"broken json", `{"type"`, http.StatusBadRequest, "Invalid request body"},
		{"missing type", `{"playerId":"player1","cell":{"x":1,"y":1}}`, http.StatusBadRequest, "type"},
		{"unknown type", `{"type":"NUKE","playerId":"player1","cell":{"x":1,"y":1}}`, http.StatusBadRequest, "NUKE"},
		{"missing cell", `{"type":"CAPTURE","playerId":"player1"}`, http.StatusBadRequest, "cell"},
		{"out of bounds", `{"type":"CAPTURE","playerId":"player1","cell":{"x":-1,"y":3}}`, http.StatusBadRequest, "outside"},
		{"empty cell", `{"type":"CAPTURE","playerId":"player1","cell":{}}`, http.StatusBadRequest, "x and y are required"},
		{"cell without y", `{"type":"CAPTURE","playerId":"player1","cell":{"x":0}}`, http.StatusBadRequest, "x and y are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.msg)
		})
	}

	w := env.do(t, "POST", "/api/game/missing/action", `{"type":"CAPTURE","playerId":"player1","cell":{"x":1,"y":1}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "POST", "/api/game/missing/end_turn", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// rejected requests leave the game untouched
	w = env.do(t, "GET", "/api/game/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decodeState(t, w)
	assert.Empty(t, state.Cells[0][0].OwnerID)
	p1, _ := state.Players.Get("player1")
	assert.Equal(t, engine.StartingGold, p1.Gold)
}

func TestUpgradeDefenseClampsAmount(t *testing.T) {
	env := newTestEnv(t, nil)
	id, _ := env.createGame(t, map[string]string{"type": "empty"})

	w := env.do(t, "POST", "/api/game/"+id+"/action", `{"type":"UPGRADE_DEFENSE","playerId":"player1","cell":{"x":1,"y":1},"amount":12}`)
	require.Equal(t, http.StatusOK, w.Code)

	state := decodeState(t, w)
	assert.Equal(t, 1, state.Cells[1][1].Defense)
	p1, _ := state.Players.Get("player1")
	assert.Equal(t, 9, p1.Gold)
}

func TestListGames(t *testing.T) {
	env := newTestEnv(t, nil)
	id, _ := env.createGame(t, nil)

	w := env.do(t, "GET", "/api/games", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int                    `json:"count"`
		Games []*service.GameSummary `json:"games"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Games, 1)
	assert.Equal(t, id, resp.Games[0].ID)
}

func TestMaps(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, "GET", "/api/maps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	grid := engine.NewGrid(10)
	grid[0][0].Type = engine.Mountain
	w = env.do(t, "POST", "/api/maps", map[string]interface{}{
		"id": "corner", "name": "Corner Peak", "rules": "flat", "cells": grid,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, "GET", "/api/maps", nil)
	var list []*service.MapInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "corner", list[0].MapID)
	assert.Equal(t, 10, list[0].GridSize)

	w = env.do(t, "GET", "/api/maps/corner.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tmpl engine.MapTemplate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tmpl))
	assert.Equal(t, "Corner Peak", tmpl.Name)

	// A game created from the map picks up its rules
	w = env.do(t, "POST", "/api/game", map[string]interface{}{"map": "corner", "seedStart": true})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"rules":"flat"`)
	state := decodeState(t, w)
	assert.Equal(t, engine.Mountain, state.Cells[0][0].Type)
	assert.Equal(t, 10, state.Cells[2][2].Defense)

	w = env.do(t, "GET", "/api/maps/absent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "POST", "/api/maps", map[string]interface{}{"cells": grid})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/maps", map[string]interface{}{"id": "../up", "cells": grid})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/maps", map[string]interface{}{"id": "ragged", "cells": grid[:3]})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	log, hook := test.NewNullLogger()
	mock := &MockGameService{
		ListGamesFunc: func(ctx context.Context) ([]*service.GameSummary, error) {
			return nil, errors.New("disk on fire")
		},
	}
	server := NewServer(mock, nil, WithLogger(log))

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/games", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "request failed" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestCORS(t *testing.T) {
	log, _ := test.NewNullLogger()
	mock := &MockGameService{}
	server := NewServer(mock, nil, WithLogger(log), WithAllowedOrigins([]string{"https://cellwar.example"}))

	req := httptest.NewRequest("OPTIONS", "/api/game", nil)
	req.Header.Set("Origin", "https://cellwar.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, "https://cellwar.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("OPTIONS", "/api/game", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocket_ReceivesUpdates(t *testing.T) {
	log, _ := test.NewNullLogger()
	hub := websocket.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	env := newTestEnv(t, hub)
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	id, _ := env.createGame(t, map[string]string{"type": "empty"})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?game=" + id
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() websocket.Message {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var msg websocket.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	assert.Equal(t, websocket.EventStateUpdate, first.Event)
	assert.Equal(t, id, first.GameID)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	w := env.do(t, "POST", "/api/game/"+id+"/end_turn", nil)
	require.Equal(t, http.StatusOK, w.Code)

	update := read()
	assert.Equal(t, websocket.EventTurnEnded, update.Event)
	require.NotNil(t, update.State)
	assert.Equal(t, "player2", update.State.CurrentPlayerID)
	assert.Equal(t, uint64(1), update.Seq)

	w = env.do(t, "POST", "/api/game/"+id+"/action", map[string]interface{}{
		"type": "UPGRADE_DEFENSE", "playerId": "player2", "cell": map[string]int{"x": 0, "y": 0}, "amount": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)

	action := read()
	assert.Equal(t, websocket.EventAction, action.Event)
	assert.Equal(t, uint64(2), action.Seq, "each broadcast carries the next game version")
}

func TestWebSocket_RequiresGame(t *testing.T) {
	log, _ := test.NewNullLogger()
	env := newTestEnv(t, websocket.NewHub(log))

	w := env.do(t, "GET", "/ws", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "GET", "/ws?game=unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	disabled := newTestEnv(t, nil)
	w = disabled.do(t, "GET", "/ws?game=unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
