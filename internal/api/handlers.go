package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/manpreetbhatti/inkboard/backend/internal/collab"
	"github.com/manpreetbhatti/inkboard/backend/internal/db"
	"github.com/manpreetbhatti/inkboard/backend/internal/room"
	"github.com/manpreetbhatti/inkboard/backend/internal/stroke"
)

type API struct {
	hub      *collab.Hub
	database *db.Database
	log      *slog.Logger
}

// New builds the REST handlers. database may be nil, in which case only
// live data is served.
func New(hub *collab.Hub, database *db.Database, log *slog.Logger) *API {
	return &API{
		hub:      hub,
		database: database,
		log:      log,
	}
}

func (a *API) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.log.Error("encode json response", "err", err)
	}
}

func (a *API) errorResponse(w http.ResponseWriter, status int, message string) {
	a.jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_rooms":        a.hub.GetRoomCount(),
		"active_clients":      a.hub.GetClientCount(),
		"active_participants": a.hub.Registry().ParticipantCount(),
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
	}

	if a.database != nil {
		dbStats, err := a.database.GetStats()
		if err != nil {
			a.log.Warn("catalog stats", "err", err)
		} else {
			stats["total_rooms"] = dbStats["room_count"]
			stats["total_strokes"] = dbStats["stroke_count"]
			stats["total_joins"] = dbStats["join_count"]
		}
	}

	a.jsonResponse(w, http.StatusOK, stats)
}

// Room handlers

type RoomResponse struct {
	ID           string             `json:"id"`
	OpenedBy     string             `json:"opened_by,omitempty"`
	CreatedAt    *time.Time         `json:"created_at,omitempty"`
	UpdatedAt    *time.Time         `json:"updated_at,omitempty"`
	Live         bool               `json:"live"`
	ActiveUsers  int                `json:"active_users"`
	StrokeCount  int                `json:"stroke_count"`
	Participants []room.Participant `json:"participants,omitempty"`
	Activity     *db.Activity       `json:"activity,omitempty"`
}

type HistoryResponse struct {
	RoomID  string           `json:"room_id"`
	Strokes []*stroke.Stroke `json:"strokes"`
}

func catalogued(resp *RoomResponse, c db.Room) {
	created, updated := c.CreatedAt, c.UpdatedAt
	resp.OpenedBy = c.OpenedBy
	resp.CreatedAt = &created
	resp.UpdatedAt = &updated
}

func live(resp *RoomResponse, r *room.Room) {
	resp.Live = true
	resp.ActiveUsers = r.Size()
	resp.StrokeCount = r.StrokeCount()
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	var rooms []db.Room
	if a.database != nil {
		var err error
		rooms, err = a.database.ListRooms(limit, offset)
		if err != nil {
			a.log.Error("list rooms", "err", err)
			a.errorResponse(w, http.StatusInternalServerError, "Failed to list rooms")
			return
		}
	}

	registry := a.hub.Registry()
	seen := make(map[string]bool, len(rooms))
	response := make([]RoomResponse, 0, len(rooms))
	for _, c := range rooms {
		resp := RoomResponse{ID: c.ID}
		catalogued(&resp, c)
		if lr, ok := registry.Get(c.ID); ok {
			live(&resp, lr)
		}
		seen[c.ID] = true
		response = append(response, resp)
	}

	// Live rooms not flushed to the catalog yet lead the first page
	if offset == 0 {
		var fresh []RoomResponse
		for _, id := range registry.IDs() {
			if seen[id] {
				continue
			}
			if lr, ok := registry.Get(id); ok {
				resp := RoomResponse{ID: id}
				live(&resp, lr)
				fresh = append(fresh, resp)
			}
		}
		response = append(fresh, response...)
	}

	a.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms":  response,
		"limit":  limit,
		"offset": offset,
	})
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	resp := RoomResponse{ID: roomID}
	found := false

	if a.database != nil {
		c, err := a.database.GetRoom(roomID)
		if err != nil {
			a.log.Error("get room", "room", roomID, "err", err)
			a.errorResponse(w, http.StatusInternalServerError, "Failed to get room")
			return
		}
		if c != nil {
			found = true
			catalogued(&resp, *c)
			activity, err := a.database.GetActivity(roomID)
			if err != nil {
				a.log.Warn("get room activity", "room", roomID, "err", err)
			}
			resp.Activity = activity
		}
	}

	if lr, ok := a.hub.Registry().Get(roomID); ok {
		found = true
		live(&resp, lr)
		resp.Participants = lr.Roster()
	}

	if !found {
		a.errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	a.jsonResponse(w, http.StatusOK, resp)
}

// RoomHistoryHandler serves the current stroke sequence of a live room
func (a *API) RoomHistoryHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	lr, ok := a.hub.Registry().Get(roomID)
	if !ok {
		a.errorResponse(w, http.StatusNotFound, "Room is not live")
		return
	}

	a.jsonResponse(w, http.StatusOK, HistoryResponse{
		RoomID:  roomID,
		Strokes: lr.History(),
	})
}

// DeleteRoomHandler removes the catalog entry. A live session keeps running.
func (a *API) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	if a.database == nil {
		a.errorResponse(w, http.StatusServiceUnavailable, "Catalog disabled")
		return
	}

	if err := a.database.DeleteRoom(roomID); err != nil {
		a.log.Error("delete room", "room", roomID, "err", err)
		a.errorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	a.jsonResponse(w, http.StatusOK, map[string]string{"message": "Room deleted"})
}
