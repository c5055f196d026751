// Package cluster runs a cluster of nodes in-process for testing.
//
// Nodes are connected using in-memory pipes, with a router that reads each
// nodes output and delivers the message to the destination node, or to the
// waiting client for replies to client requests.
package cluster

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/andydunstall/glomers/node"
	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/pkg/protocol"
	"github.com/andydunstall/glomers/workload"
)

const clientID = "c1"

type envelope struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

type Cluster struct {
	nodes   []*Node
	nodeIDs []string
	byID    map[string]*Node

	nextMsgID *atomic.Int64

	// mu protects pending.
	mu      sync.Mutex
	pending map[int64]chan map[string]any

	dropped *atomic.Int64

	options options

	wg sync.WaitGroup

	logger log.Logger
}

func NewCluster(opts ...Option) (*Cluster, error) {
	options := options{
		nodes:        3,
		workload:     workload.Broadcast,
		tickInterval: time.Millisecond * 10,
		logger:       log.NewNopLogger(),
	}
	for _, o := range opts {
		o.apply(&options)
	}

	c := &Cluster{
		byID:      make(map[string]*Node),
		nextMsgID: atomic.NewInt64(0),
		pending:   make(map[int64]chan map[string]any),
		dropped:   atomic.NewInt64(0),
		options:   options,
		logger:    options.logger.WithSubsystem("cluster"),
	}

	for i := 0; i != options.nodes; i++ {
		c.nodeIDs = append(c.nodeIDs, fmt.Sprintf("n%d", i))
	}

	for _, id := range c.nodeIDs {
		actor, err := workload.New(options.workload, nil, options.logger)
		if err != nil {
			return nil, fmt.Errorf("node: %s: %w", id, err)
		}
		n := newNode(
			id,
			actor,
			node.WithTickInterval(options.tickInterval),
			node.WithLogger(options.logger),
		)
		c.nodes = append(c.nodes, n)
		c.byID[id] = n
	}

	return c, nil
}

// Start starts each node, then sends the 'init' handshake and, for broadcast
// nodes, the topology.
func (c *Cluster) Start(ctx context.Context) error {
	for _, n := range c.nodes {
		c.wg.Add(2)
		go func() {
			defer c.wg.Done()
			n.run()
		}()
		go func() {
			defer c.wg.Done()
			c.route(n)
		}()
	}

	for _, id := range c.nodeIDs {
		if _, err := c.Request(ctx, id, protocol.TypeInit, map[string]any{
			"node_id":  id,
			"node_ids": c.nodeIDs,
		}); err != nil {
			return fmt.Errorf("init: %s: %w", id, err)
		}
	}

	if c.options.workload != workload.Broadcast {
		return nil
	}

	topology := c.options.topology
	if topology == nil {
		topology = LineTopology(c.nodeIDs)
	}
	for _, id := range c.nodeIDs {
		if _, err := c.Request(ctx, id, "topology", map[string]any{
			"topology": topology,
		}); err != nil {
			return fmt.Errorf("topology: %s: %w", id, err)
		}
	}

	return nil
}

// Request sends a request to the node with the given ID and waits for the
// reply body. If the node replies with an 'error' message, returns a
// *protocol.Error.
func (c *Cluster) Request(
	ctx context.Context,
	dest string,
	msgType string,
	body map[string]any,
) (map[string]any, error) {
	n, ok := c.byID[dest]
	if !ok {
		return nil, fmt.Errorf("unknown node: %s", dest)
	}

	msgID := c.nextMsgID.Inc()
	ch := make(chan map[string]any, 1)

	c.mu.Lock()
	c.pending[msgID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, msgID)
		c.mu.Unlock()
	}()

	line, err := encodeRequest(dest, msgType, &msgID, body)
	if err != nil {
		return nil, err
	}
	n.inbox.Push(line)

	select {
	case reply := <-ch:
		if reply["type"] == protocol.TypeError {
			code, _ := reply["code"].(float64)
			text, _ := reply["text"].(string)
			return nil, &protocol.Error{
				Code: protocol.ErrorCode(code),
				Text: text,
			}
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send sends a message to the node with the given ID without a msg_id, so
// the node never replies.
func (c *Cluster) Send(dest string, msgType string, body map[string]any) error {
	n, ok := c.byID[dest]
	if !ok {
		return fmt.Errorf("unknown node: %s", dest)
	}

	line, err := encodeRequest(dest, msgType, nil, body)
	if err != nil {
		return err
	}
	n.inbox.Push(line)
	return nil
}

func (c *Cluster) Nodes() []*Node {
	return c.nodes
}

func (c *Cluster) NodeIDs() []string {
	return c.nodeIDs
}

// Dropped returns the number of messages between nodes that were dropped.
func (c *Cluster) Dropped() int64 {
	return c.dropped.Load()
}

// Close closes the input of each node and waits for the nodes to exit.
func (c *Cluster) Close() error {
	var errs []error
	for _, n := range c.nodes {
		if err := n.stop(); err != nil {
			errs = append(errs, fmt.Errorf("node: %s: %w", n.id, err))
		}
	}
	c.wg.Wait()
	return errors.Join(errs...)
}

// route reads the output of the node and delivers each message.
func (c *Cluster) route(n *Node) {
	scanner := bufio.NewScanner(n.outR)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := append(bytes.Clone(scanner.Bytes()), '\n')

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			c.logger.Error(
				"invalid message",
				zap.String("src", n.id),
				zap.Error(err),
			)
			continue
		}

		if dest, ok := c.byID[env.Dest]; ok {
			if c.options.dropRate > 0 && rand.Float64() < c.options.dropRate {
				c.dropped.Inc()
				continue
			}
			dest.inbox.Push(line)
			continue
		}

		if env.Dest == clientID {
			c.reply(env.Body)
			continue
		}

		c.logger.Warn(
			"unknown destination",
			zap.String("src", n.id),
			zap.String("dest", env.Dest),
		)
	}
	// Drain the output if the scanner failed so the node never blocks.
	_, _ = io.Copy(io.Discard, n.outR)
}

func (c *Cluster) reply(b json.RawMessage) {
	var body map[string]any
	if err := json.Unmarshal(b, &body); err != nil {
		c.logger.Error("invalid reply", zap.Error(err))
		return
	}
	inReplyTo, ok := body["in_reply_to"].(float64)
	if !ok {
		c.logger.Warn("reply missing in_reply_to")
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[int64(inReplyTo)]
	c.mu.Unlock()

	if !ok {
		return
	}
	select {
	case ch <- body:
	default:
	}
}

// LineTopology returns a topology where each node neighbours the nodes
// before and after it.
func LineTopology(nodeIDs []string) map[string][]string {
	topology := make(map[string][]string, len(nodeIDs))
	for i, id := range nodeIDs {
		neighbours := []string{}
		if i > 0 {
			neighbours = append(neighbours, nodeIDs[i-1])
		}
		if i < len(nodeIDs)-1 {
			neighbours = append(neighbours, nodeIDs[i+1])
		}
		topology[id] = neighbours
	}
	return topology
}

func encodeRequest(
	dest string,
	msgType string,
	msgID *int64,
	body map[string]any,
) ([]byte, error) {
	b, err := protocol.Encode(&protocol.Response{
		Src:   clientID,
		Dest:  dest,
		Type:  msgType,
		MsgID: msgID,
		Body:  body,
	})
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
