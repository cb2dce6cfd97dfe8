package connector

import (
	"errors"

	"dominicbreuker/sockprobe/pkg/fault"
)

// Batch is the ordered set of connections established by one fan-out.
// Its order is attempt order. Len may be smaller than the number of
// attempts; batch index and attempt number only coincide if nothing failed.
type Batch struct {
	conns    []*Conn
	failures []*fault.Error
}

// Len ...
func (b *Batch) Len() int { return len(b.conns) }

// Conn returns the connection at batch index i.
func (b *Batch) Conn(i int) *Conn { return b.conns[i] }

// Conns returns the connections in attempt order.
func (b *Batch) Conns() []*Conn { return append([]*Conn(nil), b.conns...) }

// Failures returns the connect failures seen while building the batch.
func (b *Batch) Failures() []*fault.Error { return append([]*fault.Error(nil), b.failures...) }

// Close closes every connection. It is safe to call more than once.
func (b *Batch) Close() error {
	var errs []error
	for _, c := range b.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
