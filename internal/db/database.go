package db

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Database is the room catalog. It records which rooms existed and how busy
// they were. Canvas history is never written here.
type Database struct {
	db *sql.DB
}

type Room struct {
	ID        string    `json:"id"`
	OpenedBy  string    `json:"opened_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity holds the running counters for one room
type Activity struct {
	RoomID           string    `json:"room_id"`
	Joins            int       `json:"joins"`
	Strokes          int       `json:"strokes"`
	Undos            int       `json:"undos"`
	Redos            int       `json:"redos"`
	Clears           int       `json:"clears"`
	PeakParticipants int       `json:"peak_participants"`
	LastActive       time.Time `json:"last_active"`
}

// ActivityDelta is added onto a room's counters. Participants only raises the
// peak, it is never summed. OpenedBy is kept only if the room has none yet.
type ActivityDelta struct {
	OpenedBy     string
	Joins        int
	Strokes      int
	Undos        int
	Redos        int
	Clears       int
	Participants int
	At           time.Time
}

func New(dbPath string) (*Database, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		opened_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS room_activity (
		room_id TEXT PRIMARY KEY,
		joins INTEGER NOT NULL DEFAULT 0,
		strokes INTEGER NOT NULL DEFAULT 0,
		undos INTEGER NOT NULL DEFAULT 0,
		redos INTEGER NOT NULL DEFAULT 0,
		clears INTEGER NOT NULL DEFAULT 0,
		peak_participants INTEGER NOT NULL DEFAULT 0,
		last_active DATETIME,
		FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_room_activity_last_active ON room_activity(last_active DESC);
	`

	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Room operations

// GetRoom returns nil without error when the room is unknown
func (d *Database) GetRoom(id string) (*Room, error) {
	row := d.db.QueryRow(
		"SELECT id, opened_by, created_at, updated_at FROM rooms WHERE id = ?",
		id,
	)

	var room Room
	err := row.Scan(&room.ID, &room.OpenedBy, &room.CreatedAt, &room.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (d *Database) ListRooms(limit, offset int) ([]Room, error) {
	rows, err := d.db.Query(
		"SELECT id, opened_by, created_at, updated_at FROM rooms ORDER BY updated_at DESC, id LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.OpenedBy, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom drops the catalog entry and its counters. A live room with the
// same id is unaffected and is re-registered on its next activity flush.
func (d *Database) DeleteRoom(id string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM room_activity WHERE room_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM rooms WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// Activity operations

// ApplyActivity adds delta onto the room's counters, creating the catalog
// entry on first sight. The first non-empty OpenedBy sticks.
func (d *Database) ApplyActivity(roomID string, delta ActivityDelta) error {
	at := delta.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO rooms (id, opened_by) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			opened_by = CASE WHEN rooms.opened_by = '' THEN excluded.opened_by ELSE rooms.opened_by END
	`, roomID, delta.OpenedBy); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO room_activity (room_id, joins, strokes, undos, redos, clears, peak_participants, last_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			joins = joins + excluded.joins,
			strokes = strokes + excluded.strokes,
			undos = undos + excluded.undos,
			redos = redos + excluded.redos,
			clears = clears + excluded.clears,
			peak_participants = MAX(peak_participants, excluded.peak_participants),
			last_active = excluded.last_active
	`, roomID, delta.Joins, delta.Strokes, delta.Undos, delta.Redos, delta.Clears, delta.Participants, at); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"UPDATE rooms SET updated_at = ? WHERE id = ?",
		at, roomID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetActivity returns nil without error when nothing was recorded for the room
func (d *Database) GetActivity(roomID string) (*Activity, error) {
	row := d.db.QueryRow(`
		SELECT room_id, joins, strokes, undos, redos, clears, peak_participants, last_active
		FROM room_activity WHERE room_id = ?
	`, roomID)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListActivity returns counters for every catalogued room, most recently
// active first.
func (d *Database) ListActivity(limit, offset int) ([]Activity, error) {
	rows, err := d.db.Query(`
		SELECT room_id, joins, strokes, undos, redos, clears, peak_participants, last_active
		FROM room_activity
		ORDER BY last_active DESC, room_id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (*Activity, error) {
	var a Activity
	var last sql.NullTime
	if err := s.Scan(&a.RoomID, &a.Joins, &a.Strokes, &a.Undos, &a.Redos, &a.Clears, &a.PeakParticipants, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		a.LastActive = last.Time
	}
	return &a, nil
}

// Stats

func (d *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var roomCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM rooms").Scan(&roomCount); err != nil {
		return nil, err
	}
	stats["room_count"] = roomCount

	var strokes, joins int
	if err := d.db.QueryRow(
		"SELECT COALESCE(SUM(strokes), 0), COALESCE(SUM(joins), 0) FROM room_activity",
	).Scan(&strokes, &joins); err != nil {
		return nil, err
	}
	stats["stroke_count"] = strokes
	stats["join_count"] = joins

	return stats, nil
}
