// Package acceptloop implements the single-threaded accept loop of
// sockprobe. The loop accepts one connection at a time, sends a fixed
// greeting, reads the answer once and closes the connection. An answer
// equal to the greeting keeps the loop running; anything else stops it.
// That mismatch is the designed shutdown signal, not an error.
package acceptloop

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/fault"
	"dominicbreuker/sockprobe/pkg/format"
	"dominicbreuker/sockprobe/pkg/log"
	"dominicbreuker/sockprobe/pkg/transport"
	"dominicbreuker/sockprobe/pkg/wire"
)

// State of a loop. Stopped is terminal.
type State int32

const (
	Running State = iota + 1
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Reason tells why a loop stopped.
type Reason int

const (
	// ReasonSentinel: a peer answered with something other than the greeting.
	ReasonSentinel Reason = iota + 1
	// ReasonFailure: accept, send or receive failed; Result.Err holds a *fault.Error.
	ReasonFailure
	// ReasonCanceled: the context passed to Start was cancelled.
	ReasonCanceled
)

func (r Reason) String() string {
	switch r {
	case ReasonSentinel:
		return "sentinel"
	case ReasonFailure:
		return "failure"
	case ReasonCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result describes how a loop ended.
type Result struct {
	Reason     Reason
	Err        error  // set for ReasonFailure and ReasonCanceled
	Handshakes int    // handshakes that matched the greeting
	Sentinel   []byte // the mismatching answer, for ReasonSentinel
}

// Event is emitted after every completed handshake.
type Event struct {
	Peer     string
	Received []byte
	Match    bool
}

// Options configures a Loop. All fields are optional.
type Options struct {
	ReadSize      int           // bytes read per answer, defaults to config.DefaultReadSize
	AcceptTimeout time.Duration // only honored by listeners implementing SetDeadline
	IOTimeout     time.Duration // bounds greeting and answer of each handshake
	Observer      func(Event)
	Reporter      fault.Reporter
	Logger        *log.Logger
	Traffic       *log.TrafficLog // records the bytes of every accepted connection
}

// Loop owns a bound listener and the greeting it sends.
type Loop struct {
	listener net.Listener
	greeting []byte
	opts     Options

	once   sync.Once
	handle *Handle
}

// New returns a loop over listener. The loop takes ownership of the
// listener and closes it when it stops.
func New(listener net.Listener, greeting []byte, opts Options) *Loop {
	if opts.ReadSize < 1 {
		opts.ReadSize = config.DefaultReadSize
	}
	if opts.Reporter == nil {
		opts.Reporter = fault.Discard
	}
	return &Loop{
		listener: listener,
		greeting: append([]byte(nil), greeting...),
		opts:     opts,
	}
}

// Handle joins a started loop.
type Handle struct {
	state  atomic.Int32
	done   chan struct{}
	result Result
}

// Wait blocks until the loop stopped and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

// Done is closed once the loop stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// State ...
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Start runs the loop in its own goroutine. A loop runs at most once;
// further calls return the same handle.
func (l *Loop) Start(ctx context.Context) *Handle {
	l.once.Do(func() {
		h := &Handle{done: make(chan struct{})}
		h.state.Store(int32(Running))
		l.handle = h

		go func() {
			h.result = l.run(ctx)
			h.state.Store(int32(Stopped))
			close(h.done)
		}()
	})
	return l.handle
}

func (l *Loop) run(ctx context.Context) Result {
	defer l.listener.Close()

	// cancellation unblocks Accept by closing the listener
	stop := context.AfterFunc(ctx, func() { l.listener.Close() })
	defer stop()

	var handshakes, accepted int
	for {
		conn, err := l.accept()
		if err != nil {
			if ctx.Err() != nil {
				return Result{Reason: ReasonCanceled, Err: ctx.Err(), Handshakes: handshakes}
			}
			return l.failed(fault.New(fault.AcceptFailure, "accept", -1, err), handshakes)
		}

		peer := format.Peer(conn)
		l.opts.Logger.InfoMsg("New connection from %s\n", peer)
		conn = l.opts.Traffic.Wrap(conn, fmt.Sprintf("accept-%d", accepted))
		accepted++

		received, fe := l.handshake(conn)
		if fe != nil {
			if ctx.Err() != nil {
				return Result{Reason: ReasonCanceled, Err: ctx.Err(), Handshakes: handshakes}
			}
			return l.failed(fe, handshakes)
		}

		match := bytes.Equal(received, l.greeting)
		if l.opts.Observer != nil {
			l.opts.Observer(Event{Peer: peer, Received: received, Match: match})
		}

		if !match {
			l.opts.Logger.InfoMsg("Stop signal from %s: %q\n", peer, wire.Text(received))
			return Result{Reason: ReasonSentinel, Handshakes: handshakes, Sentinel: received}
		}

		handshakes++
		l.opts.Logger.InfoMsg("Handshake with %s completed: %q\n", peer, wire.Text(received))
	}
}

func (l *Loop) accept() (net.Conn, error) {
	if l.opts.AcceptTimeout > 0 {
		if dl, ok := l.listener.(transport.DeadlineListener); ok {
			_ = dl.SetDeadline(time.Now().Add(l.opts.AcceptTimeout))
		} else {
			l.opts.Logger.VerboseMsg("Listener %T has no accept deadline, waiting without timeout", l.listener)
		}
	}
	return l.listener.Accept()
}

// handshake sends the greeting and reads the answer once. The connection
// is closed regardless of the outcome. A peer that hangs up without
// answering yields an empty answer.
func (l *Loop) handshake(conn net.Conn) ([]byte, *fault.Error) {
	defer conn.Close()

	if l.opts.IOTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(l.opts.IOTimeout))
	}

	if _, err := conn.Write(l.greeting); err != nil {
		return nil, fault.New(fault.TransferFailure, "greet", -1, err)
	}

	received, err := wire.ReadOnce(conn, l.opts.ReadSize)
	if err != nil {
		return nil, fault.New(fault.TransferFailure, "receive", -1, err)
	}
	return received, nil
}

func (l *Loop) failed(fe *fault.Error, handshakes int) Result {
	l.opts.Reporter.Report(fe)
	return Result{Reason: ReasonFailure, Err: fe, Handshakes: handshakes}
}
