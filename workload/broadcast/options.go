package broadcast

import (
	"math/rand/v2"

	"github.com/andydunstall/glomers/pkg/log"
)

type options struct {
	rand   *rand.Rand
	logger log.Logger
}

type Option interface {
	apply(*options)
}

type randOption struct {
	Rand *rand.Rand
}

func (o randOption) apply(opts *options) {
	opts.rand = o.Rand
}

// WithRand configures the random source used to select gossip targets.
// Defaults to a randomly seeded source.
func WithRand(r *rand.Rand) Option {
	return randOption{Rand: r}
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
