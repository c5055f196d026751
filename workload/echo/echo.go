// Package echo implements a node that echoes requests back to the sender.
package echo

import (
	"go.uber.org/zap"

	"github.com/andydunstall/glomers/node"
	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/pkg/protocol"
)

const TypeEcho = "echo"

type Echo struct {
	logger log.Logger
}

func NewEcho(logger log.Logger) *Echo {
	return &Echo{
		logger: logger.WithSubsystem("echo"),
	}
}

func (e *Echo) Init(_ node.Identity, _ node.Timer) error {
	return nil
}

func (e *Echo) Receive(req *protocol.Request) ([]*protocol.Response, error) {
	if req.Type != TypeEcho {
		return nil, protocol.Errorf(
			protocol.CodeNotSupported, "unsupported message type: %s", req.Type,
		)
	}

	var echo any
	if err := req.Field("echo", &echo); err != nil {
		return nil, err
	}
	e.logger.Debug("echo", zap.String("src", req.Src))
	return []*protocol.Response{
		protocol.NewReply(req, map[string]any{"echo": echo}),
	}, nil
}

func (e *Echo) OnTick() ([]*protocol.Response, error) {
	return nil, nil
}

var _ node.Actor = &Echo{}
