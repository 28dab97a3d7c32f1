package bridge

import (
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dotside-studios/davi-uhf-agent/uhf"
)

// DefaultStatusInterval is the sampling period for status snapshots.
const DefaultStatusInterval = time.Second

// ErrSubscriberAttached is returned when a second listener tries to subscribe.
var ErrSubscriberAttached = errors.New("status stream already has a subscriber")

// Sink receives snapshots. It is called with the broadcaster locked and
// must not block.
type Sink func(StatusSnapshot)

// Broadcaster streams snapshots from a StatusSource to at most one
// subscriber. At most one sampler runs at a time. After Stop or
// Unsubscribe returns, no further snapshot reaches any sink.
type Broadcaster struct {
	source   StatusSource
	clock    uhf.Clock
	interval time.Duration
	logger   *log.Logger

	mu    sync.Mutex
	subID string
	sink  Sink
	gen   uint64
	stop  chan struct{}
	done  chan struct{}
}

// NewBroadcaster creates an idle broadcaster.
func NewBroadcaster(source StatusSource, clock uhf.Clock, interval time.Duration, logger *log.Logger) *Broadcaster {
	if clock == nil {
		clock = uhf.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[status] ", log.LstdFlags)
	}
	return &Broadcaster{
		source:   source,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Subscribe attaches sink as the only subscriber and restarts sampling so
// the new listener sees the stream from its first snapshot.
func (b *Broadcaster) Subscribe(sink Sink) (string, error) {
	if sink == nil {
		return "", errors.New("sink cannot be nil")
	}

	b.mu.Lock()
	if b.sink != nil {
		b.mu.Unlock()
		return "", ErrSubscriberAttached
	}
	id := uuid.NewString()
	b.subID = id
	b.sink = sink
	b.mu.Unlock()

	b.Stop()
	b.Start()
	b.logger.Printf("Status subscriber %s attached", id)
	return id, nil
}

// Unsubscribe detaches the subscriber with id and stops sampling. It
// reports false if id is not the current subscriber.
func (b *Broadcaster) Unsubscribe(id string) bool {
	b.mu.Lock()
	if b.sink == nil || b.subID != id {
		b.mu.Unlock()
		return false
	}
	b.sink = nil
	b.subID = ""
	b.mu.Unlock()

	b.Stop()
	b.logger.Printf("Status subscriber %s detached", id)
	return true
}

// HasSubscriber reports whether a listener is attached.
func (b *Broadcaster) HasSubscriber() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink != nil
}

// Active reports whether a sampler is running.
func (b *Broadcaster) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stop != nil
}

// Start begins sampling. It does nothing if a sampler is already running.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stop != nil {
		return
	}

	b.gen++
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	ticker := b.clock.NewTicker(b.interval)

	b.source.Reset()
	if snap, ok := b.source.Initial(); ok && b.sink != nil {
		b.sink(snap)
	}

	go b.run(b.gen, ticker, b.stop, b.done)
}

// Stop cancels sampling and waits for the sampler to exit.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if b.stop == nil {
		b.mu.Unlock()
		return
	}
	b.gen++
	close(b.stop)
	done := b.done
	b.stop = nil
	b.done = nil
	b.mu.Unlock()

	<-done
}

// Publish delivers an externally produced snapshot to the subscriber. It
// reports whether anyone was listening.
func (b *Broadcaster) Publish(snap StatusSnapshot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sink == nil {
		return false
	}
	b.sink(snap)
	return true
}

func (b *Broadcaster) run(gen uint64, ticker uhf.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			snap, ok := b.source.Next()
			if !ok {
				continue
			}
			b.deliver(gen, snap)
		}
	}
}

// deliver drops snap if the sampler that produced it has been cancelled.
func (b *Broadcaster) deliver(gen uint64, snap StatusSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen || b.sink == nil {
		return
	}
	b.sink(snap)
}
