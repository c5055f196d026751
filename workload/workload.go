// Package workload creates the node actor for a configured workload.
package workload

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andydunstall/glomers/node"
	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/workload/broadcast"
	"github.com/andydunstall/glomers/workload/echo"
	"github.com/andydunstall/glomers/workload/uniqueids"
)

const (
	Broadcast = "broadcast"
	Echo      = "echo"
	UniqueIDs = "unique-ids"
)

// Names contains the supported workloads.
var Names = []string{Broadcast, Echo, UniqueIDs}

// New returns the actor for the named workload. The workload metrics are
// registered with registry if it is not nil.
func New(
	name string,
	registry *prometheus.Registry,
	logger log.Logger,
) (node.Actor, error) {
	switch name {
	case Broadcast:
		b := broadcast.NewBroadcast(broadcast.WithLogger(logger))
		if registry != nil {
			b.Metrics().Register(registry)
		}
		return b, nil
	case Echo:
		return echo.NewEcho(logger), nil
	case UniqueIDs:
		u := uniqueids.NewUniqueIDs(logger)
		if registry != nil {
			u.Metrics().Register(registry)
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unsupported workload: %s", name)
	}
}
