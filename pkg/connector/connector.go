// Package connector fans out a fixed number of outbound connections to one
// endpoint and drives sends and receives over the resulting batch. Failures
// are isolated per attempt and per connection: they are reported and
// returned, and never abort the rest of the batch.
package connector

import (
	"context"
	"fmt"
	"time"

	"dominicbreuker/sockprobe/pkg/fault"
	"dominicbreuker/sockprobe/pkg/format"
	"dominicbreuker/sockprobe/pkg/log"
	"dominicbreuker/sockprobe/pkg/session"
	"dominicbreuker/sockprobe/pkg/transport"
	"dominicbreuker/sockprobe/pkg/wire"
)

// Options configures a Connector. All fields are optional.
type Options struct {
	Timeout  time.Duration   // bounds each send and receive, zero disables
	Reporter fault.Reporter  // receives every failure as it happens
	Logger   *log.Logger
	Traffic  *log.TrafficLog // records the bytes of every connection
}

// Connector establishes and drives a batch of connections through one dialer.
type Connector struct {
	dialer transport.Dialer
	opts   Options
}

// New ...
func New(dialer transport.Dialer, opts Options) *Connector {
	if opts.Reporter == nil {
		opts.Reporter = fault.Discard
	}
	return &Connector{dialer: dialer, opts: opts}
}

// Response is what one connection returned to ReceiveAll.
type Response struct {
	Index int
	Data  []byte
}

// ConnectBatch makes count attempts in order, one try each. Successful
// connections are appended to the batch; failed attempts are reported and
// recorded in the batch. A cancelled ctx fails the remaining attempts.
func (c *Connector) ConnectBatch(ctx context.Context, count int) *Batch {
	b := &Batch{}

	for attempt := 0; attempt < count; attempt++ {
		nc, err := c.dialer.Dial(ctx)
		if err != nil {
			c.fail(&b.failures, fault.New(fault.ConnectFailure, "connect", attempt, err))
			continue
		}

		idx := len(b.conns)
		nc = c.opts.Traffic.Wrap(nc, fmt.Sprintf("conn-%d", idx))
		b.conns = append(b.conns, &Conn{nc: nc, attempt: attempt, index: idx})
		c.opts.Logger.VerboseMsg("Attempt %d connected to %s as conn %d", attempt, format.Peer(nc), idx)
	}

	return b
}

// SendToAll writes the payload built from template, the session ID and the
// batch index to every connection, each as a single framed write.
func (c *Connector) SendToAll(b *Batch, template string, sess session.Session) []*fault.Error {
	var failures []*fault.Error

	for _, conn := range b.conns {
		payload := wire.Payload(template, sess.ID(), conn.Index())
		if err := conn.Send(payload, c.opts.Timeout); err != nil {
			c.fail(&failures, fault.New(fault.TransferFailure, "send", conn.Index(), err))
			continue
		}
		c.opts.Logger.VerboseMsg("Sent %q on conn %d", wire.Text(payload), conn.Index())
	}

	return failures
}

// ReceiveAll reads once, at most max bytes, from every connection.
// Connections that fail are skipped in the returned responses.
func (c *Connector) ReceiveAll(b *Batch, max int) ([]Response, []*fault.Error) {
	var (
		responses []Response
		failures  []*fault.Error
	)

	for _, conn := range b.conns {
		data, err := conn.Receive(max, c.opts.Timeout)
		if err != nil {
			c.fail(&failures, fault.New(fault.TransferFailure, "receive", conn.Index(), err))
			continue
		}
		responses = append(responses, Response{Index: conn.Index(), Data: data})
	}

	return responses, failures
}

func (c *Connector) fail(into *[]*fault.Error, e *fault.Error) {
	*into = append(*into, e)
	c.opts.Reporter.Report(e)
}
