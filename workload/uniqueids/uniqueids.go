// Package uniqueids implements a node that generates globally unique IDs
// without coordinating with other nodes.
package uniqueids

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andydunstall/glomers/node"
	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/pkg/protocol"
)

const TypeGenerate = "generate"

type Metrics struct {
	// Generated is the total number of IDs generated.
	Generated prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Generated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "unique_ids",
				Name:      "generated_total",
				Help:      "Total number of IDs generated",
			},
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.Generated)
}

// UniqueIDs replies to 'generate' requests with a random UUID.
type UniqueIDs struct {
	metrics *Metrics
	logger  log.Logger
}

func NewUniqueIDs(logger log.Logger) *UniqueIDs {
	return &UniqueIDs{
		metrics: NewMetrics(),
		logger:  logger.WithSubsystem("unique-ids"),
	}
}

func (u *UniqueIDs) Init(_ node.Identity, _ node.Timer) error {
	return nil
}

func (u *UniqueIDs) Receive(req *protocol.Request) ([]*protocol.Response, error) {
	if req.Type != TypeGenerate {
		return nil, protocol.Errorf(
			protocol.CodeNotSupported, "unsupported message type: %s", req.Type,
		)
	}

	id := uuid.NewString()
	u.metrics.Generated.Inc()
	u.logger.Debug(
		"generated id",
		zap.String("src", req.Src),
		zap.String("id", id),
	)
	return []*protocol.Response{
		protocol.NewReply(req, map[string]any{"id": id}),
	}, nil
}

func (u *UniqueIDs) OnTick() ([]*protocol.Response, error) {
	return nil, nil
}

func (u *UniqueIDs) Metrics() *Metrics {
	return u.metrics
}

var _ node.Actor = &UniqueIDs{}
