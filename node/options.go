package node

import (
	"time"

	"github.com/andydunstall/glomers/pkg/log"
)

const (
	defaultTickInterval = time.Millisecond * 50
	defaultQueueSize    = 1024
)

type options struct {
	tickInterval time.Duration
	queueSize    int
	logger       log.Logger
}

type Option interface {
	apply(*options)
}

type tickIntervalOption time.Duration

func (o tickIntervalOption) apply(opts *options) {
	opts.tickInterval = time.Duration(o)
}

// WithTickInterval configures the period between timer ticks once the timer
// is armed. Defaults to 50ms.
func WithTickInterval(interval time.Duration) Option {
	return tickIntervalOption(interval)
}

type queueSizeOption int

func (o queueSizeOption) apply(opts *options) {
	opts.queueSize = int(o)
}

// WithQueueSize configures the capacity of the event queue. Defaults to 1024.
func WithQueueSize(size int) Option {
	return queueSizeOption(size)
}

type loggerOption struct {
	Logger log.Logger
}

func (o loggerOption) apply(opts *options) {
	opts.logger = o.Logger
}

// WithLogger configures the logger. Defaults to no output.
func WithLogger(logger log.Logger) Option {
	return loggerOption{Logger: logger}
}
