package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "inkboard-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func TestDatabaseCreation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if db == nil {
		t.Fatal("Database should not be nil")
	}
}

func TestRoomOperations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.ApplyActivity("test-room", ActivityDelta{OpenedBy: "Ada", Joins: 1})
	if err != nil {
		t.Fatalf("Failed to create room: %v", err)
	}

	// Later joiners never replace whoever opened the room
	if err := db.ApplyActivity("test-room", ActivityDelta{OpenedBy: "Grace", Joins: 1}); err != nil {
		t.Fatalf("Failed to update room: %v", err)
	}

	room, err := db.GetRoom("test-room")
	if err != nil {
		t.Fatalf("Failed to get room: %v", err)
	}
	if room == nil {
		t.Fatal("Room should exist")
	}
	if room.ID != "test-room" {
		t.Errorf("Expected room ID 'test-room', got '%s'", room.ID)
	}
	if room.OpenedBy != "Ada" {
		t.Errorf("Expected room opened by 'Ada', got '%s'", room.OpenedBy)
	}

	room, err = db.GetRoom("non-existent")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if room != nil {
		t.Error("Non-existent room should return nil")
	}

	err = db.DeleteRoom("test-room")
	if err != nil {
		t.Fatalf("Failed to delete room: %v", err)
	}

	room, err = db.GetRoom("test-room")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if room != nil {
		t.Error("Deleted room should not exist")
	}
}

func TestListRooms(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		err := db.ApplyActivity("room-"+string(rune('a'+i)), ActivityDelta{OpenedBy: "User " + string(rune('A'+i))})
		if err != nil {
			t.Fatalf("Failed to create room: %v", err)
		}
	}

	rooms, err := db.ListRooms(10, 0)
	if err != nil {
		t.Fatalf("Failed to list rooms: %v", err)
	}
	if len(rooms) != 5 {
		t.Errorf("Expected 5 rooms, got %d", len(rooms))
	}

	rooms, err = db.ListRooms(2, 0)
	if err != nil {
		t.Fatalf("Failed to list rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("Expected 2 rooms with limit, got %d", len(rooms))
	}

	rooms, err = db.ListRooms(2, 3)
	if err != nil {
		t.Fatalf("Failed to list rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("Expected 2 rooms with offset, got %d", len(rooms))
	}
}

func TestApplyActivity(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	roomID := "activity-room"
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// First delta registers the room in the catalog
	err := db.ApplyActivity(roomID, ActivityDelta{Joins: 2, Strokes: 5, Participants: 2, At: first})
	if err != nil {
		t.Fatalf("Failed to apply activity: %v", err)
	}
	room, err := db.GetRoom(roomID)
	if err != nil {
		t.Fatalf("Failed to get room: %v", err)
	}
	if room == nil {
		t.Fatal("Room should be catalogued by its first activity")
	}

	second := first.Add(time.Minute)
	err = db.ApplyActivity(roomID, ActivityDelta{Joins: 1, Strokes: 3, Undos: 2, Redos: 1, Clears: 1, Participants: 1, At: second})
	if err != nil {
		t.Fatalf("Failed to apply activity: %v", err)
	}

	a, err := db.GetActivity(roomID)
	if err != nil {
		t.Fatalf("Failed to get activity: %v", err)
	}
	if a == nil {
		t.Fatal("Activity should exist")
	}
	if a.Joins != 3 || a.Strokes != 8 || a.Undos != 2 || a.Redos != 1 || a.Clears != 1 {
		t.Errorf("Unexpected counters: %+v", a)
	}
	// Peak is a maximum, not a sum
	if a.PeakParticipants != 2 {
		t.Errorf("Expected peak 2, got %d", a.PeakParticipants)
	}
	if !a.LastActive.Equal(second) {
		t.Errorf("Expected last active %v, got %v", second, a.LastActive)
	}

	missing, err := db.GetActivity("nobody")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("Unknown room should have no activity")
	}
}

func TestApplyActivityFillsMissingOpener(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	// Counters flushed before anyone joined leave the opener blank
	if err := db.ApplyActivity("late", ActivityDelta{Strokes: 1}); err != nil {
		t.Fatalf("Failed to apply activity: %v", err)
	}
	if err := db.ApplyActivity("late", ActivityDelta{OpenedBy: "Ada", Joins: 1}); err != nil {
		t.Fatalf("Failed to apply activity: %v", err)
	}

	room, err := db.GetRoom("late")
	if err != nil {
		t.Fatalf("Failed to get room: %v", err)
	}
	if room == nil || room.OpenedBy != "Ada" {
		t.Errorf("Expected room opened by 'Ada', got %+v", room)
	}
}

func TestListActivity(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		delta := ActivityDelta{Strokes: i + 1, At: base.Add(time.Duration(i) * time.Hour)}
		if err := db.ApplyActivity(id, delta); err != nil {
			t.Fatalf("Failed to apply activity: %v", err)
		}
	}

	list, err := db.ListActivity(10, 0)
	if err != nil {
		t.Fatalf("Failed to list activity: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(list))
	}
	if list[0].RoomID != "new" || list[2].RoomID != "old" {
		t.Errorf("Expected most recent first, got %s..%s", list[0].RoomID, list[2].RoomID)
	}
}

func TestDeleteRoomDropsActivity(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.ApplyActivity("doomed", ActivityDelta{Strokes: 4}); err != nil {
		t.Fatalf("Failed to apply activity: %v", err)
	}
	if err := db.DeleteRoom("doomed"); err != nil {
		t.Fatalf("Failed to delete room: %v", err)
	}

	a, err := db.GetActivity("doomed")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a != nil {
		t.Error("Activity should be removed with the room")
	}
}

func TestStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		if err := db.ApplyActivity("stats-room-"+string(rune('a'+i)), ActivityDelta{}); err != nil {
			t.Fatalf("Failed to create room: %v", err)
		}
	}
	if err := db.ApplyActivity("stats-room-a", ActivityDelta{Joins: 2, Strokes: 5}); err != nil {
		t.Fatalf("Failed to apply activity: %v", err)
	}
	if err := db.ApplyActivity("stats-room-b", ActivityDelta{Joins: 1, Strokes: 1}); err != nil {
		t.Fatalf("Failed to apply activity: %v", err)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}

	if stats["room_count"].(int) != 3 {
		t.Errorf("Expected 3 rooms, got %v", stats["room_count"])
	}
	if stats["stroke_count"].(int) != 6 {
		t.Errorf("Expected 6 strokes, got %v", stats["stroke_count"])
	}
	if stats["join_count"].(int) != 3 {
		t.Errorf("Expected 3 joins, got %v", stats["join_count"])
	}
}
