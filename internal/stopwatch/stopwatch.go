// Package stopwatch counts time spent in a lesson view on a periodic tick.
package stopwatch

import (
	"sync"
	"time"
)

const defaultInterval = time.Second

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Config struct {
	// Interval is both the tick period and the amount added per tick.
	Interval      time.Duration
	NewTickerFunc func(d time.Duration) Ticker
}

// Stopwatch adds Interval to its elapsed time on every tick while running. It is safe for
// concurrent use. Stop must be called when the owner is discarded.
type Stopwatch struct {
	interval time.Duration
	ticker   Ticker

	mu      sync.Mutex
	elapsed time.Duration
	paused  bool
	stopped bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Start returns a running stopwatch.
func Start(c Config) *Stopwatch {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}

	if c.NewTickerFunc == nil {
		c.NewTickerFunc = newTimeTicker
	}

	s := &Stopwatch{
		interval: c.Interval,
		ticker:   c.NewTickerFunc(c.Interval),
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Stopwatch) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C():
			s.mu.Lock()
			if !s.paused && !s.stopped {
				s.elapsed += s.interval
			}
			s.mu.Unlock()
		}
	}
}

// Pause ignores ticks until Resume is called.
func (s *Stopwatch) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *Stopwatch) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *Stopwatch) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Stop freezes the elapsed time and releases the ticker. It is safe to call more than once
// and returns the final elapsed time.
func (s *Stopwatch) Stop() time.Duration {
	s.mu.Lock()
	if s.stopped {
		defer s.mu.Unlock()
		return s.elapsed
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	s.ticker.Stop()

	return s.Elapsed()
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }

func (t timeTicker) Stop() { t.t.Stop() }
