package node

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andydunstall/glomers/pkg/log"
)

type timerState uint8

const (
	timerIdle timerState = iota
	timerArmed
	timerStopped
)

// tickSink receives ticks from the timer.
type tickSink interface {
	OfferTick() bool
}

// timer periodically offers ticks to the event queue once armed. It owns no
// actor state.
type timer struct {
	interval time.Duration
	sink     tickSink

	// onDropped is called when a tick is dropped as the queue already has a
	// pending tick.
	onDropped func()

	// mu protects state.
	mu    sync.Mutex
	state timerState

	shutdownCh chan struct{}
	doneCh     chan struct{}

	logger log.Logger
}

func newTimer(
	interval time.Duration,
	sink tickSink,
	onDropped func(),
	logger log.Logger,
) *timer {
	return &timer{
		interval:   interval,
		sink:       sink,
		onDropped:  onDropped,
		state:      timerIdle,
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
		logger:     logger.WithSubsystem("node.timer"),
	}
}

// Arm starts the timer. Only the first call starts the timer, and arming a
// stopped timer has no effect.
func (t *timer) Arm() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != timerIdle {
		return false
	}
	t.state = timerArmed

	t.logger.Debug("timer armed", zap.Duration("interval", t.interval))

	go t.run()
	return true
}

// Armed returns whether the timer is running.
func (t *timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state == timerArmed
}

// Stop stops the timer and waits for the ticker goroutine to exit, so no
// ticks are offered after Stop returns.
func (t *timer) Stop() {
	t.mu.Lock()
	prev := t.state
	t.state = timerStopped
	if prev == timerArmed {
		close(t.shutdownCh)
	}
	t.mu.Unlock()

	if prev == timerArmed {
		<-t.doneCh
		t.logger.Debug("timer stopped")
	}
}

func (t *timer) run() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !t.sink.OfferTick() && t.onDropped != nil {
				t.onDropped()
			}
		case <-t.shutdownCh:
			return
		}
	}
}

var _ Timer = &timer{}
