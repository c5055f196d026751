package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/pkg/protocol"
)

// Phase is the runtime phase of the node.
type Phase uint8

const (
	// PhaseUninitialized is the phase before the 'init' handshake.
	PhaseUninitialized Phase = iota
	// PhaseInitialized is the phase after a successful 'init' handshake.
	PhaseInitialized
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "uninitialized":
		*p = PhaseUninitialized
	case "initialized":
		*p = PhaseInitialized
	default:
		return fmt.Errorf("unknown phase: %s", string(b))
	}
	return nil
}

// Runtime runs an actor as a node.
//
// The runtime reads requests from the transport and passes them to the actor,
// then writes the actors responses back to the transport. Inbound requests
// and timer ticks are added to a single event queue which is processed by
// one goroutine, so the actor is never called concurrently.
type Runtime struct {
	actor     Actor
	transport *protocol.Transport

	queue *eventQueue
	timer *timer

	// identity and phase are only accessed by the consumer goroutine, except
	// identity is set during the handshake before the consumer starts.
	identity Identity
	phase    Phase

	// initialized is set once the handshake completes so other goroutines
	// can check the phase without accessing phase.
	initialized *atomic.Bool

	// readErr is the error that stopped the read loop. It is set before the
	// queue is closed so is safe to read once the consumer sees the closed
	// queue.
	readErr error

	metrics *Metrics

	logger log.Logger
}

func NewRuntime(actor Actor, transport *protocol.Transport, opts ...Option) *Runtime {
	options := options{
		tickInterval: defaultTickInterval,
		queueSize:    defaultQueueSize,
		logger:       log.NewNopLogger(),
	}
	for _, o := range opts {
		o.apply(&options)
	}

	queue := newEventQueue(options.queueSize)
	metrics := newMetrics(
		func() float64 { return float64(transport.BytesRead()) },
		func() float64 { return float64(transport.BytesWritten()) },
		func() float64 { return float64(queue.Len()) },
	)
	return &Runtime{
		actor:     actor,
		transport: transport,
		queue:     queue,
		timer: newTimer(
			options.tickInterval,
			queue,
			metrics.TicksDropped.Inc,
			options.logger,
		),
		phase:       PhaseUninitialized,
		initialized: atomic.NewBool(false),
		metrics:     metrics,
		logger:      options.logger.WithSubsystem("node"),
	}
}

// Run runs the node until the input stream is closed or the context is
// cancelled.
//
// Run first waits for the 'init' handshake, then processes events until
// the input reaches EOF, at which point the timer is stopped and any queued
// events are processed before returning.
//
// Returns an error if the handshake fails, the input can't be read or the
// output can't be written. Returns nil if the input is closed or the context
// is cancelled, including before the handshake completes.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The read loop isn't added to the group since a blocked read can't be
	// interrupted. It exits once the input is closed.
	go r.readLoop(ctx)

	ok, err := r.handshake(ctx)
	if err != nil || !ok {
		r.timer.Stop()
	}
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if !ok {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return r.consume(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		r.timer.Stop()
		return nil
	})

	return g.Wait()
}

// Status returns a snapshot of the node status.
//
// The snapshot is taken on the consumer goroutine so blocks until queued
// events ahead of it have been processed.
func (r *Runtime) Status(ctx context.Context) (*NodeStatus, error) {
	if !r.initialized.Load() {
		return &NodeStatus{
			Phase: PhaseUninitialized,
		}, nil
	}

	ch := make(chan *NodeStatus, 1)
	e := event{
		kind: eventInspect,
		inspect: func() {
			status := &NodeStatus{
				ID:      r.identity.ID,
				NodeIDs: slices.Clone(r.identity.NodeIDs),
				Phase:   r.phase,
			}
			if inspector, ok := r.actor.(Inspector); ok {
				status.Workload = inspector.Status()
			}
			ch <- status
		},
	}
	if err := r.queue.Push(ctx, e); err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}

	select {
	case status := <-ch:
		return status, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runtime) Metrics() *Metrics {
	return r.metrics
}

// handshake waits for the node to receive an 'init' message.
//
// Any other message received first is rejected with a protocol error, as is
// an 'init' with an invalid body. Returns false if the input is closed or
// the context is cancelled before the handshake completes.
func (r *Runtime) handshake(ctx context.Context) (bool, error) {
	for {
		var e event
		select {
		case next, ok := <-r.queue.Events():
			if !ok {
				if r.readErr != nil {
					return false, r.readErr
				}
				r.logger.Info("input closed before init")
				return false, nil
			}
			e = next
		case <-ctx.Done():
			r.logger.Info("cancelled before init")
			return false, nil
		}

		if e.kind != eventMessage {
			// The timer can't be armed before init.
			if e.kind == eventInspect {
				e.inspect()
			}
			continue
		}

		req, err := e.req, e.decodeErr
		if err != nil {
			if err := r.reject(req, err); err != nil {
				return false, err
			}
			continue
		}

		if req.Type != protocol.TypeInit {
			if err := r.reject(req, protocol.Errorf(
				protocol.CodeProtocolError,
				"node not initialized: %s", req.Type,
			)); err != nil {
				return false, err
			}
			continue
		}

		identity, err := parseInit(req)
		if err != nil {
			if err := r.reject(req, err); err != nil {
				return false, err
			}
			continue
		}

		if err := r.actor.Init(identity, r.timer); err != nil {
			return false, fmt.Errorf("init actor: %w", err)
		}
		r.metrics.MessagesInbound.WithLabelValues(req.Type).Inc()

		r.identity = identity
		r.phase = PhaseInitialized
		r.initialized.Store(true)

		r.logger = r.logger.With(zap.String("node-id", identity.ID))
		r.logger.Info(
			"node initialized",
			zap.Strings("node-ids", identity.NodeIDs),
		)

		if req.MsgID == nil {
			return true, nil
		}
		if err := r.write(protocol.NewReply(req, nil)); err != nil {
			return false, err
		}
		return true, nil
	}
}

// readLoop reads requests from the transport and adds them to the event
// queue until the input is closed.
func (r *Runtime) readLoop(ctx context.Context) {
	defer func() {
		// Stop the timer before closing the queue so no ticks are offered to
		// a closed queue.
		r.timer.Stop()
		r.queue.Close()
	}()

	for {
		line, err := r.transport.ReadLine()
		if errors.Is(err, io.EOF) {
			r.logger.Info("input closed")
			return
		}
		if err != nil {
			r.readErr = err
			return
		}

		req, err := protocol.Decode(line)
		e := event{
			kind:      eventMessage,
			req:       req,
			decodeErr: err,
		}
		if err := r.queue.Push(ctx, e); err != nil {
			return
		}
	}
}

// consume processes events until the queue is closed or the context is
// cancelled.
func (r *Runtime) consume(ctx context.Context) error {
	for {
		select {
		case e, ok := <-r.queue.Events():
			if !ok {
				if r.readErr != nil {
					return r.readErr
				}
				return nil
			}
			if err := r.handleEvent(e); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Runtime) handleEvent(e event) error {
	switch e.kind {
	case eventMessage:
		return r.handleMessage(e.req, e.decodeErr)
	case eventTick:
		r.queue.AckTick()
		return r.handleTick()
	case eventInspect:
		e.inspect()
		return nil
	default:
		r.logger.Error("unknown event", zap.String("kind", e.kind.String()))
		return nil
	}
}

func (r *Runtime) handleMessage(req *protocol.Request, decodeErr error) error {
	if decodeErr != nil {
		return r.reject(req, decodeErr)
	}

	if req.Type == protocol.TypeInit {
		return r.reject(req, protocol.Errorf(
			protocol.CodeProtocolError, "node already initialized",
		))
	}

	resps, err := r.actor.Receive(req)
	if err != nil {
		return r.reject(req, err)
	}
	// Only accepted messages are labelled by type, since the type is chosen
	// by the sender.
	r.metrics.MessagesInbound.WithLabelValues(req.Type).Inc()
	return r.writeAll(resps)
}

func (r *Runtime) handleTick() error {
	r.metrics.Ticks.Inc()

	resps, err := r.actor.OnTick()
	if err != nil {
		// There is no request to reply to so only log the error.
		r.logger.Warn("tick failed", zap.Error(err))
		return nil
	}
	return r.writeAll(resps)
}

// reject replies to the request with the given error if the request has a
// msg_id, otherwise the error is logged and the request dropped.
func (r *Runtime) reject(req *protocol.Request, err error) error {
	var perr *protocol.Error
	if !errors.As(err, &perr) {
		perr = protocol.Errorf(protocol.CodeCrash, "%s", err.Error())
	}

	r.metrics.MessagesInbound.WithLabelValues(inboundRejected).Inc()
	r.metrics.Errors.WithLabelValues(strconv.Itoa(int(perr.Code))).Inc()

	if req == nil || req.MsgID == nil {
		fields := []zap.Field{zap.Error(perr)}
		if req != nil {
			fields = append(
				fields,
				zap.String("src", req.Src),
				zap.String("type", req.Type),
			)
		}
		r.logger.Warn("dropped message", fields...)
		return nil
	}

	r.logger.Debug(
		"rejected message",
		zap.String("src", req.Src),
		zap.String("type", req.Type),
		zap.Int64("msg-id", *req.MsgID),
		zap.Error(perr),
	)
	return r.write(protocol.NewErrorReply(req, perr))
}

func (r *Runtime) writeAll(resps []*protocol.Response) error {
	for _, resp := range resps {
		if err := r.write(resp); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) write(resp *protocol.Response) error {
	if r.identity.ID != "" {
		resp.Src = r.identity.ID
	}
	if err := r.transport.Write(resp); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	r.metrics.MessagesOutbound.WithLabelValues(resp.Type).Inc()
	return nil
}

func parseInit(req *protocol.Request) (Identity, error) {
	var identity Identity
	if err := req.Field("node_id", &identity.ID); err != nil {
		return Identity{}, err
	}
	if identity.ID == "" {
		return Identity{}, protocol.Errorf(
			protocol.CodeProtocolError, "init: empty node_id",
		)
	}
	if err := req.Field("node_ids", &identity.NodeIDs); err != nil {
		return Identity{}, err
	}
	if !slices.Contains(identity.NodeIDs, identity.ID) {
		return Identity{}, protocol.Errorf(
			protocol.CodeProtocolError,
			"init: node_ids does not contain %s", identity.ID,
		)
	}
	return identity, nil
}
