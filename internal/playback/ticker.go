package playback

import "time"

// Ticker delivers ticks on C at a fixed interval until stopped.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// TickerFactory creates a started [Ticker].
type TickerFactory func(d time.Duration) Ticker

// Clock tells the current wall-clock time.
type Clock func() time.Time

type timeTicker struct {
	ticker *time.Ticker
}

// NewTimeTicker is the [TickerFactory] backed by [time.Ticker].
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{ticker: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Reset(d time.Duration) {
	t.ticker.Reset(d)
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}
