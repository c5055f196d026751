package broadcast

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/andydunstall/glomers/node"
	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/pkg/protocol"
)

const (
	TypeBroadcast = "broadcast"
	TypeRead      = "read"
	TypeTopology  = "topology"
	TypeGossip    = "gossip"
)

// Phase is the configuration phase of the broadcast node.
type Phase uint8

const (
	// PhaseUnconfigured is the phase before a valid topology is received.
	PhaseUnconfigured Phase = iota
	// PhaseConfigured is the phase once the node has its neighbours and
	// the gossip timer is armed.
	PhaseConfigured
)

func (p Phase) String() string {
	switch p {
	case PhaseUnconfigured:
		return "unconfigured"
	case PhaseConfigured:
		return "configured"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unconfigured":
		*p = PhaseUnconfigured
	case "configured":
		*p = PhaseConfigured
	default:
		return fmt.Errorf("unknown phase: %s", string(b))
	}
	return nil
}

// Status is a snapshot of the broadcast node state.
type Status struct {
	Phase      Phase    `json:"phase"`
	Neighbours []string `json:"neighbours"`
	Messages   []int64  `json:"messages"`
}

// Broadcast is a node actor that disseminates broadcast values to every node
// in the cluster using gossip.
//
// Broadcast values are added to the local message set and never forwarded
// synchronously. Instead on each tick the node sends its full message set to
// one random neighbour and one random peer, so every node eventually learns
// every value even if some gossip messages are lost.
//
// Broadcast is not thread safe. The runtime calls it from a single
// goroutine.
type Broadcast struct {
	identity node.Identity
	// peers contains the other nodes in the cluster.
	peers []string
	timer node.Timer

	phase      Phase
	neighbours []string
	messages   *MessageSet

	rand *rand.Rand

	metrics *Metrics

	logger log.Logger
}

func NewBroadcast(opts ...Option) *Broadcast {
	options := options{
		logger: log.NewNopLogger(),
	}
	for _, o := range opts {
		o.apply(&options)
	}
	if options.rand == nil {
		options.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Broadcast{
		phase:    PhaseUnconfigured,
		messages: NewMessageSet(),
		rand:     options.rand,
		metrics:  NewMetrics(),
		logger:   options.logger.WithSubsystem("broadcast"),
	}
}

func (b *Broadcast) Init(identity node.Identity, timer node.Timer) error {
	b.identity = identity
	b.timer = timer

	b.peers = make([]string, 0, len(identity.NodeIDs))
	for _, id := range identity.NodeIDs {
		if id != identity.ID {
			b.peers = append(b.peers, id)
		}
	}

	b.logger = b.logger.With(zap.String("node-id", identity.ID))
	return nil
}

func (b *Broadcast) Receive(req *protocol.Request) ([]*protocol.Response, error) {
	switch req.Type {
	case TypeBroadcast:
		return b.handleBroadcast(req)
	case TypeRead:
		return b.handleRead(req)
	case TypeTopology:
		return b.handleTopology(req)
	case TypeGossip:
		return b.handleGossip(req)
	default:
		return nil, protocol.Errorf(
			protocol.CodeNotSupported, "unsupported message type: %s", req.Type,
		)
	}
}

// OnTick runs a gossip round. Does nothing until the node is configured.
func (b *Broadcast) OnTick() ([]*protocol.Response, error) {
	if b.phase != PhaseConfigured {
		return nil, nil
	}

	var targets []string
	if len(b.neighbours) > 0 {
		targets = append(targets, b.neighbours[b.rand.IntN(len(b.neighbours))])
	}
	if len(b.peers) > 0 {
		targets = append(targets, b.peers[b.rand.IntN(len(b.peers))])
	}

	values := b.messages.Values()
	resps := make([]*protocol.Response, 0, len(targets))
	for _, target := range targets {
		resps = append(resps, protocol.NewMessage(
			target, TypeGossip, map[string]any{"messages": values},
		))
	}

	b.metrics.GossipSent.Add(float64(len(resps)))

	return resps, nil
}

// Status returns a snapshot of the node state.
func (b *Broadcast) Status() any {
	return &Status{
		Phase:      b.phase,
		Neighbours: slices.Clone(b.neighbours),
		Messages:   b.messages.Values(),
	}
}

func (b *Broadcast) Metrics() *Metrics {
	return b.metrics
}

func (b *Broadcast) handleBroadcast(req *protocol.Request) ([]*protocol.Response, error) {
	var value int64
	if err := req.Field("message", &value); err != nil {
		return nil, err
	}

	added := b.messages.Add(value)
	b.metrics.Broadcasts.WithLabelValues(strconv.FormatBool(added)).Inc()
	b.metrics.Messages.Set(float64(b.messages.Len()))

	// Broadcasts from peers have no msg_id and expect no reply.
	if req.MsgID == nil {
		return nil, nil
	}
	return []*protocol.Response{protocol.NewReply(req, nil)}, nil
}

func (b *Broadcast) handleRead(req *protocol.Request) ([]*protocol.Response, error) {
	return []*protocol.Response{
		protocol.NewReply(req, map[string]any{
			"messages": b.messages.Values(),
		}),
	}, nil
}

func (b *Broadcast) handleTopology(req *protocol.Request) ([]*protocol.Response, error) {
	neighbours, err := parseNeighbours(req, b.identity.ID, b.peers)
	if err != nil {
		b.logger.Warn("invalid topology", zap.Error(err))
		return nil, err
	}

	b.neighbours = neighbours
	b.metrics.TopologyUpdates.Inc()

	if b.phase == PhaseUnconfigured {
		b.phase = PhaseConfigured
		b.timer.Arm()
		b.logger.Info(
			"node configured",
			zap.Strings("neighbours", neighbours),
		)
	} else {
		b.logger.Info(
			"topology updated",
			zap.Strings("neighbours", neighbours),
		)
	}

	return []*protocol.Response{protocol.NewReply(req, nil)}, nil
}

func (b *Broadcast) handleGossip(req *protocol.Request) ([]*protocol.Response, error) {
	var values []int64
	if err := req.Field("messages", &values); err != nil {
		return nil, err
	}

	b.metrics.GossipReceived.Inc()

	merged := b.messages.Merge(values)
	if merged > 0 {
		b.metrics.ValuesMerged.Add(float64(merged))
		b.metrics.Messages.Set(float64(b.messages.Len()))
		b.logger.Debug(
			"merged gossip",
			zap.String("src", req.Src),
			zap.Int("merged", merged),
		)
	}

	// Gossip is one way so never has a reply.
	return nil, nil
}

var _ node.Actor = &Broadcast{}
var _ node.Inspector = &Broadcast{}
