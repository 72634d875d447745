package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manpreetbhatti/inkboard/backend/internal/collab"
	"github.com/manpreetbhatti/inkboard/backend/internal/db"
	"github.com/manpreetbhatti/inkboard/backend/internal/room"
	"github.com/manpreetbhatti/inkboard/backend/internal/stroke"
)

func setupTestAPI(t *testing.T) (*API, http.Handler, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "inkboard-api-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create database: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := collab.NewHub(room.NewRegistry(), nil, log)
	api := New(hub, database, log)
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})

	cleanup := func() {
		database.Close()
		os.RemoveAll(tmpDir)
	}

	return api, NewRouter(api, ws, log), cleanup
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// liveRoom opens a session with one participant and the given number of strokes
func liveRoom(t *testing.T, api *API, id string, strokes int) *room.Room {
	t.Helper()
	r, _ := api.hub.Registry().GetOrCreate(id)
	r.Join("conn-1", "Ada")
	for i := 0; i < strokes; i++ {
		s := stroke.New("conn-1", []stroke.Point{{X: float64(i), Y: 0}}, "#000000", 1, stroke.Brush)
		if err := r.AddStroke(s); err != nil {
			t.Fatalf("Failed to add stroke: %v", err)
		}
	}
	return r
}

func TestHealthHandler(t *testing.T) {
	_, router, cleanup := setupTestAPI(t)
	defer cleanup()

	w := serve(router, "GET", "/health")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%v'", response["status"])
	}
}

func TestStatsHandler(t *testing.T) {
	api, router, cleanup := setupTestAPI(t)
	defer cleanup()

	liveRoom(t, api, "stats-live", 0)
	api.database.ApplyActivity("stats-live", db.ActivityDelta{Joins: 1, Strokes: 4})

	w := serve(router, "GET", "/api/stats")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["active_rooms"] != float64(1) {
		t.Errorf("Expected 1 active room, got %v", response["active_rooms"])
	}
	if response["active_participants"] != float64(1) {
		t.Errorf("Expected 1 active participant, got %v", response["active_participants"])
	}
	if response["total_strokes"] != float64(4) {
		t.Errorf("Expected 4 total strokes, got %v", response["total_strokes"])
	}
	if _, ok := response["active_clients"]; !ok {
		t.Error("Response should contain 'active_clients'")
	}
}

func TestGetRoom(t *testing.T) {
	api, router, cleanup := setupTestAPI(t)
	defer cleanup()

	roomID := "get-test-room"
	api.database.ApplyActivity(roomID, db.ActivityDelta{OpenedBy: "Ada", Joins: 1})

	w := serve(router, "GET", "/api/rooms/"+roomID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response RoomResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.ID != roomID {
		t.Errorf("Expected room ID '%s', got '%v'", roomID, response.ID)
	}
	if response.OpenedBy != "Ada" {
		t.Errorf("Expected room opened by 'Ada', got '%v'", response.OpenedBy)
	}
	if response.Live {
		t.Error("Catalogued room without a session should not be live")
	}
}

func TestGetRoomLiveOnly(t *testing.T) {
	api, router, cleanup := setupTestAPI(t)
	defer cleanup()

	liveRoom(t, api, "fresh", 2)

	w := serve(router, "GET", "/api/rooms/fresh")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response RoomResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Live || response.ActiveUsers != 1 || response.StrokeCount != 2 {
		t.Errorf("Unexpected live room: %+v", response)
	}
	if len(response.Participants) != 1 || response.Participants[0].Name != "Ada" {
		t.Errorf("Expected Ada in participants, got %+v", response.Participants)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	_, router, cleanup := setupTestAPI(t)
	defer cleanup()

	w := serve(router, "GET", "/api/rooms/non-existent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRoomHistory(t *testing.T) {
	api, router, cleanup := setupTestAPI(t)
	defer cleanup()

	r := liveRoom(t, api, "canvas", 3)
	r.Undo("conn-1")

	w := serve(router, "GET", "/api/rooms/canvas/history")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response.Strokes) != 2 {
		t.Errorf("Expected 2 strokes after undo, got %d", len(response.Strokes))
	}

	w = serve(router, "GET", "/api/rooms/gone/history")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for a room without a session, got %d", w.Code)
	}
}

func TestListRooms(t *testing.T) {
	api, router, cleanup := setupTestAPI(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		api.database.ApplyActivity("list-room-"+string(rune('a'+i)), db.ActivityDelta{OpenedBy: "User " + string(rune('A'+i))})
	}
	liveRoom(t, api, "list-room-a", 1)
	liveRoom(t, api, "uncatalogued", 0)

	w := serve(router, "GET", "/api/rooms")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Rooms []RoomResponse `json:"rooms"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(response.Rooms) != 6 {
		t.Fatalf("Expected 6 rooms, got %d", len(response.Rooms))
	}
	if response.Rooms[0].ID != "uncatalogued" || !response.Rooms[0].Live {
		t.Errorf("Expected the uncatalogued live room first, got %+v", response.Rooms[0])
	}
	for _, r := range response.Rooms {
		if r.ID == "list-room-a" && (!r.Live || r.ActiveUsers != 1) {
			t.Errorf("Expected list-room-a to be live with 1 user, got %+v", r)
		}
	}
}

func TestListRoomsPagination(t *testing.T) {
	api, router, cleanup := setupTestAPI(t)
	defer cleanup()

	for i := 0; i < 10; i++ {
		api.database.ApplyActivity("page-room-"+string(rune('a'+i)), db.ActivityDelta{})
	}

	w := serve(router, "GET", "/api/rooms?limit=3")

	var response map[string]any
	json.NewDecoder(w.Body).Decode(&response)

	rooms := response["rooms"].([]any)
	if len(rooms) != 3 {
		t.Errorf("Expected 3 rooms with limit, got %d", len(rooms))
	}

	w = serve(router, "GET", "/api/rooms?limit=3&offset=7")

	json.NewDecoder(w.Body).Decode(&response)

	rooms = response["rooms"].([]any)
	if len(rooms) != 3 {
		t.Errorf("Expected 3 rooms with offset, got %d", len(rooms))
	}
}

func TestDeleteRoom(t *testing.T) {
	api, router, cleanup := setupTestAPI(t)
	defer cleanup()

	roomID := "delete-test-room"
	api.database.ApplyActivity(roomID, db.ActivityDelta{OpenedBy: "Ada"})
	liveRoom(t, api, roomID, 1)

	w := serve(router, "DELETE", "/api/rooms/"+roomID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	room, _ := api.database.GetRoom(roomID)
	if room != nil {
		t.Error("Room should have been deleted")
	}
	// The live session is untouched
	if _, ok := api.hub.Registry().Get(roomID); !ok {
		t.Error("Live room should survive catalog deletion")
	}
}

func TestRouter(t *testing.T) {
	_, router, cleanup := setupTestAPI(t)
	defer cleanup()

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{
			name:           "GET /api/rooms - list",
			method:         "GET",
			path:           "/api/rooms",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "PUT /api/rooms - not allowed",
			method:         "PUT",
			path:           "/api/rooms",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "OPTIONS preflight",
			method:         "OPTIONS",
			path:           "/api/rooms/x",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Unknown path",
			method:         "GET",
			path:           "/api/versions",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Websocket endpoint",
			method:         "GET",
			path:           "/ws",
			expectedStatus: http.StatusSwitchingProtocols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.path)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if w.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("Expected CORS header")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, router, cleanup := setupTestAPI(t)
	defer cleanup()

	w := serve(router, "GET", "/metrics")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected default collectors in /metrics output")
	}
}
