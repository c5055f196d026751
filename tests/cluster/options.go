package cluster

import (
	"time"

	"github.com/andydunstall/glomers/pkg/log"
)

type options struct {
	nodes        int
	workload     string
	topology     map[string][]string
	dropRate     float64
	tickInterval time.Duration
	logger       log.Logger
}

type Option interface {
	apply(*options)
}

type nodesOption int

func (o nodesOption) apply(opts *options) {
	opts.nodes = int(o)
}

// WithNodes configures the number of nodes in the cluster. Defaults to 3.
func WithNodes(nodes int) Option {
	return nodesOption(nodes)
}

type workloadOption string

func (o workloadOption) apply(opts *options) {
	opts.workload = string(o)
}

// WithWorkload configures the workload each node runs. Defaults to
// 'broadcast'.
func WithWorkload(workload string) Option {
	return workloadOption(workload)
}

type topologyOption map[string][]string

func (o topologyOption) apply(opts *options) {
	opts.topology = o
}

// WithTopology configures the topology sent to each node when the cluster
// starts. Defaults to a line topology. Has no effect unless the workload is
// 'broadcast'.
func WithTopology(topology map[string][]string) Option {
	return topologyOption(topology)
}

type dropRateOption float64

func (o dropRateOption) apply(opts *options) {
	opts.dropRate = float64(o)
}

// WithDropRate configures the probability that a message between two nodes
// is dropped. Messages to and from clients are never dropped.
func WithDropRate(rate float64) Option {
	return dropRateOption(rate)
}

type tickIntervalOption time.Duration

func (o tickIntervalOption) apply(opts *options) {
	opts.tickInterval = time.Duration(o)
}

// WithTickInterval configures the gossip interval of each node. Defaults to
// 10ms.
func WithTickInterval(interval time.Duration) Option {
	return tickIntervalOption(interval)
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
