package cluster

import (
	"context"
	"io"

	"github.com/andydunstall/glomers/node"
	"github.com/andydunstall/glomers/pkg/protocol"
)

// Node is a node runtime in the cluster, connected with in-memory pipes
// rather than stdin and stdout.
type Node struct {
	id string

	runtime *node.Runtime

	inbox *inbox

	outR *io.PipeReader
	outW *io.PipeWriter

	errCh chan error
}

func newNode(id string, actor node.Actor, opts ...node.Option) *Node {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	return &Node{
		id: id,
		runtime: node.NewRuntime(
			actor, protocol.NewTransport(inR, outW), opts...,
		),
		inbox: newInbox(inW),
		outR:  outR,
		outW:  outW,
		errCh: make(chan error, 1),
	}
}

func (n *Node) ID() string {
	return n.id
}

// Status returns the node runtime status.
func (n *Node) Status(ctx context.Context) (*node.NodeStatus, error) {
	return n.runtime.Status(ctx)
}

func (n *Node) Runtime() *node.Runtime {
	return n.runtime
}

func (n *Node) run() {
	err := n.runtime.Run(context.Background())
	// Close the output so the router exits.
	n.outW.Close()
	n.errCh <- err
}

// stop closes the node input and waits for the runtime to exit.
func (n *Node) stop() error {
	n.inbox.Close()
	return <-n.errCh
}
