package node

import (
	"github.com/andydunstall/glomers/pkg/protocol"
)

// Identity is the nodes identity assigned by the 'init' handshake. It is set
// exactly once and is immutable thereafter.
type Identity struct {
	// ID is the ID of the local node.
	ID string `json:"id"`

	// NodeIDs contains the IDs of every node in the cluster, including the
	// local node.
	NodeIDs []string `json:"node_ids"`
}

// Timer is the handle an actor uses to start periodic ticks.
type Timer interface {
	// Arm starts delivering ticks to the actor. Only the first call has any
	// effect, which returns true.
	Arm() bool
}

// Actor implements the behaviour of a node.
//
// The runtime calls the actor from a single goroutine, so the actor owns its
// state and needs no locking. Actor methods must not block.
type Actor interface {
	// Init is called once when the node receives the 'init' handshake.
	Init(identity Identity, timer Timer) error

	// Receive handles an inbound request and returns the messages to send,
	// which may be empty.
	//
	// If a *protocol.Error is returned, it is sent to the requester when the
	// request has a msg_id. Any other error is reported as a crash.
	Receive(req *protocol.Request) ([]*protocol.Response, error)

	// OnTick is called on each timer tick once the timer has been armed.
	OnTick() ([]*protocol.Response, error)
}

// Inspector is implemented by actors that expose their state in the admin
// status API.
type Inspector interface {
	// Status returns a snapshot of the actor state. The snapshot must not
	// share memory with the actor.
	Status() any
}
