package uhf

import (
	"sync"
	"time"
)

// Clock abstracts time so status sampling can be driven by tests.
type Clock interface {
	Now() time.Time

	// NewTicker creates a ticker that fires every d.
	NewTicker(d time.Duration) Ticker

	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Ticker is the subset of time.Ticker used by the agent.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock implements Clock with the time package.
type RealClock struct{}

func NewRealClock() Clock {
	return RealClock{}
}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type realTicker struct {
	ticker *time.Ticker
}

func (rt *realTicker) C() <-chan time.Time {
	return rt.ticker.C
}

func (rt *realTicker) Stop() {
	rt.ticker.Stop()
}

// FakeClock is a manually advanced Clock for tests.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	c        chan time.Time
}

// NewFakeClock returns a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (fc *FakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.now
}

func (fc *FakeClock) NewTicker(d time.Duration) Ticker {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	ft := &fakeTicker{
		clock:    fc,
		interval: d,
		next:     fc.now.Add(d),
		c:        make(chan time.Time, 1),
	}
	fc.tickers = append(fc.tickers, ft)
	return ft
}

func (fc *FakeClock) After(d time.Duration) <-chan time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	ch := make(chan time.Time, 1)
	fc.waiters = append(fc.waiters, fakeWaiter{deadline: fc.now.Add(d), c: ch})
	return ch
}

// Advance moves time forward by d, firing every live ticker whose next
// deadline has passed and every After channel that has expired. Like
// time.Ticker, a ticker whose channel is still full drops the tick.
func (fc *FakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.now = fc.now.Add(d)

	live := fc.tickers[:0]
	for _, ft := range fc.tickers {
		if ft.stopped {
			continue
		}
		live = append(live, ft)
		if fc.now.Before(ft.next) {
			continue
		}
		for !fc.now.Before(ft.next) {
			ft.next = ft.next.Add(ft.interval)
		}
		select {
		case ft.c <- fc.now:
		default:
		}
	}
	fc.tickers = live

	pending := fc.waiters[:0]
	for _, w := range fc.waiters {
		if fc.now.Before(w.deadline) {
			pending = append(pending, w)
			continue
		}
		w.c <- fc.now
	}
	fc.waiters = pending
}

// ActiveTickers returns the number of tickers that have not been stopped.
func (fc *FakeClock) ActiveTickers() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	n := 0
	for _, ft := range fc.tickers {
		if !ft.stopped {
			n++
		}
	}
	return n
}

type fakeTicker struct {
	clock    *FakeClock
	interval time.Duration
	next     time.Time
	c        chan time.Time
	stopped  bool
}

func (ft *fakeTicker) C() <-chan time.Time {
	return ft.c
}

func (ft *fakeTicker) Stop() {
	ft.clock.mu.Lock()
	defer ft.clock.mu.Unlock()
	ft.stopped = true
}
