package activity

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manpreetbhatti/inkboard/backend/internal/db"
)

type Config struct {
	Interval   time.Duration
	BufferSize int
}

func DefaultConfig() Config {
	return Config{
		Interval:   10 * time.Second,
		BufferSize: 1024,
	}
}

// Store is where aggregated counters end up
type Store interface {
	ApplyActivity(roomID string, delta db.ActivityDelta) error
}

// Service folds hub events into per-room deltas and writes them out on an
// interval. Record never blocks the caller.
type Service struct {
	store   Store
	config  Config
	log     *slog.Logger
	events  chan Event
	pending map[string]db.ActivityDelta
	dropped atomic.Int64
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func New(store Store, config Config, log *slog.Logger) *Service {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	return &Service{
		store:   store,
		config:  config,
		log:     log,
		events:  make(chan Event, config.BufferSize),
		pending: make(map[string]db.ActivityDelta),
		stop:    make(chan struct{}),
	}
}

// Record queues an event. When the buffer is full the event is dropped.
func (s *Service) Record(e Event) {
	select {
	case s.events <- e:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was full
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Info("activity service started", "interval", s.config.Interval)
}

// Stop flushes whatever was recorded before it was called
func (s *Service) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		s.log.Info("activity service stopped", "dropped", s.dropped.Load())
	})
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.drain()
			s.flush()
			return
		case e := <-s.events:
			s.apply(e)
		case <-ticker.C:
			s.flush()
		}
	}
}

func (s *Service) drain() {
	for {
		select {
		case e := <-s.events:
			s.apply(e)
		default:
			return
		}
	}
}

func (s *Service) apply(e Event) {
	d := s.pending[e.RoomID]
	switch e.Kind {
	case Joined:
		d.Joins++
		if d.OpenedBy == "" {
			d.OpenedBy = e.Name
		}
	case Stroke:
		d.Strokes++
	case Undo:
		d.Undos++
	case Redo:
		d.Redos++
	case Clear:
		d.Clears++
	}
	d.Participants = max(d.Participants, e.Participants)
	if e.At.After(d.At) {
		d.At = e.At
	}
	s.pending[e.RoomID] = d
}

func (s *Service) flush() {
	if len(s.pending) == 0 {
		return
	}

	written := 0
	for roomID, delta := range s.pending {
		if err := s.store.ApplyActivity(roomID, delta); err != nil {
			// Kept for the next tick
			s.log.Error("flush activity", "room", roomID, "err", err)
			continue
		}
		delete(s.pending, roomID)
		written++
	}

	if written > 0 {
		s.log.Debug("activity flushed", "rooms", written)
	}
}
