// Package store holds the per-workspace simulation state: the loaded bill, the accumulated events and the
// playback engine that decides which of them are visible.
package store

import (
	"slices"
	"sync"
	"time"

	"github.com/myrjola/billeffect/internal/broker"
	"github.com/myrjola/billeffect/internal/models"
	"github.com/myrjola/billeffect/internal/playback"
	"github.com/samber/lo"
)

// VisibleEvents returns the events dated on or before asOf in their original order.
//
// The input slice is never modified.
func VisibleEvents(events []models.SimulationEvent, asOf time.Time) []models.SimulationEvent {
	asOf = models.Date(asOf)
	return lo.Filter(events, func(e models.SimulationEvent, _ int) bool {
		return !e.Date.After(asOf)
	})
}

// Status is the progress of the analysis as shown to the user.
type Status struct {
	Analyzing bool   `json:"analyzing"`
	LastError string `json:"lastError,omitempty"`
}

// Snapshot is published to subscribers after every change.
type Snapshot struct {
	Playback     playback.State `json:"playback"`
	Status       Status         `json:"status"`
	BillTitle    string         `json:"billTitle,omitempty"`
	EventCount   int            `json:"eventCount"`
	VisibleCount int            `json:"visibleCount"`
}

// Store is the state of one workspace. It is safe for concurrent use.
//
// The store lock is never held while calling into the engine, the engine calls back into the store on changes.
type Store struct {
	mu        sync.Mutex
	bill      *models.Bill
	events    []models.SimulationEvent
	analyzing bool
	lastError string

	engine *playback.Engine
	broker *broker.Broker[Snapshot]
	// publishMu orders snapshot capture with delivery to the broker so the last published snapshot is never stale.
	publishMu sync.Mutex
	closeOnce sync.Once
}

// New creates an empty store. The options configure its playback engine.
func New(opts ...playback.Option) *Store {
	s := &Store{ //nolint:exhaustruct // empty state.
		broker: broker.NewBroker[Snapshot](),
	}
	opts = append(opts, playback.WithOnChange(func(playback.State) { s.publish() }))
	s.engine = playback.New(opts...)
	go s.broker.Start()
	return s
}

// Close stops playback and closes all subscriptions.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.engine.Close()
		s.broker.Stop()
	})
}

// Subscribe returns a channel receiving the latest snapshot after each change, and a function to unsubscribe.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	return s.broker.Subscribe()
}

// Snapshot describes the current state.
func (s *Store) Snapshot() Snapshot {
	state := s.engine.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := Snapshot{
		Playback:     state,
		Status:       Status{Analyzing: s.analyzing, LastError: s.lastError},
		BillTitle:    "",
		EventCount:   len(s.events),
		VisibleCount: len(VisibleEvents(s.events, state.CurrentDate)),
	}
	if s.bill != nil {
		snapshot.BillTitle = s.bill.Title
	}
	return snapshot
}

func (s *Store) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.broker.Publish(s.Snapshot())
}

// SetBill replaces the loaded bill.
func (s *Store) SetBill(bill models.Bill) {
	s.mu.Lock()
	s.bill = &bill
	s.mu.Unlock()
	s.publish()
}

// Bill returns the loaded bill.
func (s *Store) Bill() (models.Bill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bill == nil {
		return models.Bill{}, false //nolint:exhaustruct // no bill.
	}
	return s.bill.WithKeyPoints(s.bill.KeyPoints), true
}

// ClearBill unloads the bill. Events are kept.
func (s *Store) ClearBill() {
	s.mu.Lock()
	s.bill = nil
	s.mu.Unlock()
	s.publish()
}

// AttachKeyPoints stores points on the loaded bill. It reports false and does nothing when the loaded bill is
// not billID, e.g. because the user replaced it while the analysis was running.
func (s *Store) AttachKeyPoints(billID string, points []models.KeyPoint) bool {
	s.mu.Lock()
	if s.bill == nil || s.bill.ID != billID {
		s.mu.Unlock()
		return false
	}
	updated := s.bill.WithKeyPoints(points)
	s.bill = &updated
	s.mu.Unlock()
	s.publish()
	return true
}

// AddEvents appends events.
func (s *Store) AddEvents(events []models.SimulationEvent) {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
	s.publish()
}

// AddEventsForBill appends events only while billID is loaded. It reports whether the events were added.
func (s *Store) AddEventsForBill(billID string, events []models.SimulationEvent) bool {
	s.mu.Lock()
	if s.bill == nil || s.bill.ID != billID {
		s.mu.Unlock()
		return false
	}
	s.events = append(s.events, events...)
	s.mu.Unlock()
	s.publish()
	return true
}

// ClearEvents removes all events.
func (s *Store) ClearEvents() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
	s.publish()
}

// Events returns a copy of all events in insertion order.
func (s *Store) Events() []models.SimulationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// VisibleEvents returns the events visible at the current playback date.
func (s *Store) VisibleEvents() []models.SimulationEvent {
	return s.VisibleEventsAsOf(s.engine.State().CurrentDate)
}

// VisibleEventsAsOf returns the events visible at date.
func (s *Store) VisibleEventsAsOf(date time.Time) []models.SimulationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return VisibleEvents(s.events, date)
}

// BeginAnalysis marks the store as analyzing and clears the last error. It reports false if an analysis is
// already in flight.
func (s *Store) BeginAnalysis() bool {
	s.mu.Lock()
	if s.analyzing {
		s.mu.Unlock()
		return false
	}
	s.analyzing = true
	s.lastError = ""
	s.mu.Unlock()
	s.publish()
	return true
}

// EndAnalysis clears the analyzing flag and records errMsg, empty on success.
func (s *Store) EndAnalysis(errMsg string) {
	s.mu.Lock()
	s.analyzing = false
	s.lastError = errMsg
	s.mu.Unlock()
	s.publish()
}

// Status returns the analysis status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Analyzing: s.analyzing, LastError: s.lastError}
}

// ResetSimulation unloads the bill, removes the events and resets playback.
func (s *Store) ResetSimulation() {
	s.mu.Lock()
	s.bill = nil
	s.events = nil
	s.lastError = ""
	s.mu.Unlock()
	s.engine.Reset()
}

// Playback returns the playback state.
func (s *Store) Playback() playback.State {
	return s.engine.State()
}

func (s *Store) Play() {
	s.engine.Play()
}

func (s *Store) Pause() {
	s.engine.Pause()
}

func (s *Store) TogglePlayback() {
	s.engine.Toggle()
}

func (s *Store) Seek(date time.Time) {
	s.engine.Seek(date)
}

func (s *Store) SetSpeed(speed playback.Speed) error {
	return s.engine.SetSpeed(speed) //nolint:wrapcheck // engine errors are already annotated.
}

func (s *Store) SetDateRange(start, end time.Time) error {
	return s.engine.SetDateRange(start, end) //nolint:wrapcheck // engine errors are already annotated.
}

// ResetPlayback pauses and restores the default window.
func (s *Store) ResetPlayback() {
	s.engine.Reset()
}
