// Package playback implements the date cursor that animates simulation events along a timeline.
//
// The engine is either paused or playing. While playing it owns exactly one ticker that advances the current
// date by one calendar day per tick. The tick interval shrinks with the speed multiplier, the advance never does.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/models"
)

// Speed is the playback multiplier.
type Speed int

const (
	Speed1x Speed = 1
	Speed2x Speed = 2
	Speed5x Speed = 5
)

// Speeds lists the allowed multipliers.
var Speeds = []Speed{Speed1x, Speed2x, Speed5x}

// DefaultBaseInterval is the tick interval at 1x.
const DefaultBaseInterval = time.Second

var (
	ErrInvalidSpeed = errors.NewSentinel("invalid playback speed")
	ErrInvalidRange    = errors.NewSentinel("start date after end date")
	ErrInvalidInterval = errors.NewSentinel("tick interval must be positive")
)

// ValidateBaseInterval rejects intervals that cannot drive a ticker at every speed.
func ValidateBaseInterval(d time.Duration) error {
	if d/time.Duration(Speeds[len(Speeds)-1]) <= 0 {
		return errors.Wrap(ErrInvalidInterval, "validate base interval", slog.Duration("interval", d))
	}
	return nil
}

// ParseSpeed validates n as one of [Speeds].
func ParseSpeed(n int) (Speed, error) {
	for _, s := range Speeds {
		if int(s) == n {
			return s, nil
		}
	}
	return 0, errors.Wrap(ErrInvalidSpeed, "parse speed", slog.Int("speed", n))
}

// State is a snapshot of the playback clock.
type State struct {
	IsPlaying   bool      `json:"isPlaying"`
	Speed       Speed     `json:"speed"`
	CurrentDate time.Time `json:"currentDate"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// Progress is the position of the current date within the range as a fraction between 0 and 1.
func (s State) Progress() float64 {
	total := s.EndDate.Sub(s.StartDate)
	if total <= 0 {
		return 1
	}
	return float64(s.CurrentDate.Sub(s.StartDate)) / float64(total)
}

// tickerRun is the handle of the ticker goroutine owned by one playing period.
type tickerRun struct {
	ticker   Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

// cancel stops the ticker and signals the goroutine to exit. It is safe to call more than once.
func (r *tickerRun) cancel() {
	r.stopOnce.Do(func() {
		r.ticker.Stop()
		close(r.stop)
	})
}

// Engine is the playback clock. It is safe for concurrent use.
type Engine struct {
	mu           sync.Mutex
	state        State
	run          *tickerRun
	clock        Clock
	newTicker    TickerFactory
	baseInterval time.Duration
	onChange     func(State)
}

// Option configures an [Engine].
type Option func(*Engine)

// WithClock sets the clock used to determine today.
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithTickerFactory sets how tickers are created.
func WithTickerFactory(factory TickerFactory) Option {
	return func(e *Engine) { e.newTicker = factory }
}

// WithBaseInterval sets the tick interval at 1x. Non-positive intervals keep [DefaultBaseInterval].
func WithBaseInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.baseInterval = d
		}
	}
}

// WithOnChange registers a callback receiving the state after every transition.
//
// The callback runs without the engine lock held and may call back into the engine.
func WithOnChange(fn func(State)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// New creates a paused engine positioned at today with the range today to today plus two years.
func New(opts ...Option) *Engine {
	e := &Engine{ //nolint:exhaustruct // state and run are initialised below.
		clock:        time.Now,
		newTicker:    NewTimeTicker,
		baseInterval: DefaultBaseInterval,
		onChange:     func(State) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = e.initialState()
	return e
}

func (e *Engine) initialState() State {
	window := models.DefaultWindow(e.clock())
	return State{
		IsPlaying:   false,
		Speed:       Speed1x,
		CurrentDate: window.Start,
		StartDate:   window.Start,
		EndDate:     window.End,
	}
}

// State returns the current snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// interval is the tick interval for speed.
func (e *Engine) interval(speed Speed) time.Duration {
	if d := e.baseInterval / time.Duration(speed); d > 0 {
		return d
	}
	return DefaultBaseInterval / time.Duration(speed)
}

// Play starts playback. Calling Play while playing keeps the running ticker.
//
// Playing from the end date is allowed: the first tick clamps to the end date and pauses.
func (e *Engine) Play() {
	e.mu.Lock()
	if e.state.IsPlaying {
		e.mu.Unlock()
		return
	}
	e.state.IsPlaying = true
	e.startLocked()
	s := e.state
	e.mu.Unlock()
	e.onChange(s)
}

// Pause stops playback. The ticker is cancelled before Pause returns.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.state.IsPlaying {
		e.mu.Unlock()
		return
	}
	e.stopLocked()
	s := e.state
	e.mu.Unlock()
	e.onChange(s)
}

// Toggle flips between playing and paused.
func (e *Engine) Toggle() {
	e.mu.Lock()
	if e.state.IsPlaying {
		e.stopLocked()
	} else {
		e.state.IsPlaying = true
		e.startLocked()
	}
	s := e.state
	e.mu.Unlock()
	e.onChange(s)
}

// Seek moves the current date to date clamped into the range. Neither the play state nor the ticker phase change.
func (e *Engine) Seek(date time.Time) {
	date = models.Date(date)
	e.mu.Lock()
	switch {
	case date.Before(e.state.StartDate):
		date = e.state.StartDate
	case date.After(e.state.EndDate):
		date = e.state.EndDate
	}
	e.state.CurrentDate = date
	s := e.state
	e.mu.Unlock()
	e.onChange(s)
}

// SetSpeed changes how often ticks fire. Every tick still advances exactly one day.
func (e *Engine) SetSpeed(speed Speed) error {
	if _, err := ParseSpeed(int(speed)); err != nil {
		return err
	}
	e.mu.Lock()
	e.state.Speed = speed
	if e.run != nil {
		e.run.ticker.Reset(e.interval(speed))
	}
	s := e.state
	e.mu.Unlock()
	e.onChange(s)
	return nil
}

// SetDateRange replaces the bounds. The current date is not reclamped, use [Engine.Reset] for a clean slate.
func (e *Engine) SetDateRange(start, end time.Time) error {
	start, end = models.Date(start), models.Date(end)
	if start.After(end) {
		return errors.Wrap(ErrInvalidRange, "set date range",
			slog.String("start", models.FormatDate(start)), slog.String("end", models.FormatDate(end)))
	}
	e.mu.Lock()
	e.state.StartDate = start
	e.state.EndDate = end
	s := e.state
	e.mu.Unlock()
	e.onChange(s)
	return nil
}

// Reset pauses and reinitialises the range to today until today plus two years with the cursor at today.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.stopLocked()
	e.state = e.initialState()
	s := e.state
	e.mu.Unlock()
	e.onChange(s)
}

// Close stops the ticker without notifying. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// startLocked creates the ticker handle for a new playing period. Callers hold e.mu.
func (e *Engine) startLocked() {
	r := &tickerRun{ //nolint:exhaustruct // stopOnce zero value is ready to use.
		ticker: e.newTicker(e.interval(e.state.Speed)),
		stop:   make(chan struct{}),
	}
	e.run = r
	go e.loop(r)
}

// stopLocked pauses and destroys the ticker handle. Callers hold e.mu.
func (e *Engine) stopLocked() {
	e.state.IsPlaying = false
	if e.run != nil {
		e.run.cancel()
		e.run = nil
	}
}

func (e *Engine) loop(r *tickerRun) {
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.C():
			if !e.tick(r) {
				return
			}
		}
	}
}

// tick advances the current date by one day. It returns false when the run has ended.
func (e *Engine) tick(r *tickerRun) bool {
	e.mu.Lock()
	// A tick from a cancelled run must not be observed.
	if e.run != r {
		e.mu.Unlock()
		return false
	}
	next := e.state.CurrentDate.AddDate(0, 0, 1)
	ended := !next.Before(e.state.EndDate)
	if ended {
		e.state.CurrentDate = e.state.EndDate
		e.stopLocked()
	} else {
		e.state.CurrentDate = next
	}
	s := e.state
	e.mu.Unlock()
	e.onChange(s)
	return !ended
}
