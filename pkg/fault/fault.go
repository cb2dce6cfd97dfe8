// Package fault classifies the failures sockprobe reports instead of
// swallowing them. A stop requested by a peer's sentinel message is not a
// fault and has no Kind here.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind ...
type Kind int

const (
	// ConnectFailure means one outbound attempt could not be established.
	ConnectFailure Kind = iota + 1
	// TransferFailure means a send or receive on an established connection failed.
	TransferFailure
	// AcceptFailure means the accept loop's listener failed.
	AcceptFailure
	// TimeoutFailure means a connect, accept, send or receive ran out of time.
	TimeoutFailure
)

func (k Kind) String() string {
	switch k {
	case ConnectFailure:
		return "connect failure"
	case TransferFailure:
		return "transfer failure"
	case AcceptFailure:
		return "accept failure"
	case TimeoutFailure:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified failure of a single operation.
type Error struct {
	Kind  Kind
	Op    string // "connect", "send", "receive", "accept", "greet", ...
	Index int    // attempt or batch index, -1 if not applicable
	Err   error
}

func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s #%d: %s", e.Kind, e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New classifies err. Timeouts are reported as TimeoutFailure regardless
// of kind.
func New(kind Kind, op string, index int, err error) *Error {
	if IsTimeout(err) {
		kind = TimeoutFailure
	}
	return &Error{Kind: kind, Op: op, Index: index, Err: err}
}

// IsTimeout reports whether err stems from an expired deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Reporter receives failures as they happen.
type Reporter interface {
	Report(*Error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(*Error)

// Report ...
func (f ReporterFunc) Report(e *Error) {
	f(e)
}

// Discard is a Reporter that ignores everything. Callers still get the
// failures through return values.
var Discard Reporter = ReporterFunc(func(*Error) {})
