// Package session holds the immutable per-run context shared by the
// connector and the accept loop.
package session

import (
	"strconv"

	"dominicbreuker/sockprobe/pkg/config"
	"dominicbreuker/sockprobe/pkg/wire"

	"github.com/google/uuid"
)

// Session ...
type Session struct {
	id       string
	listen   config.Endpoint
	greeting string
}

// New returns a session. An empty id is replaced by a random UUID.
func New(id string, listen config.Endpoint, greeting string) Session {
	if id == "" {
		id = uuid.NewString()
	}
	return Session{id: id, listen: listen, greeting: greeting}
}

// Anonymous returns a session without identifier. Payloads sent in it
// carry no session tag.
func Anonymous(listen config.Endpoint, greeting string) Session {
	return Session{listen: listen, greeting: greeting}
}

// ID ...
func (s Session) ID() string { return s.id }

// Listen is the local endpoint the accept loop is bound to.
func (s Session) Listen() config.Endpoint { return s.listen }

// Greeting returns the framed greeting.
func (s Session) Greeting() []byte { return wire.Frame(s.greeting) }

// Template returns "<prefix>:<listen addr>:<round>", or "<prefix>:<round>"
// if the session has no listen endpoint.
func (s Session) Template(prefix string, round int) string {
	if s.listen.Protocol() == 0 {
		return prefix + ":" + strconv.Itoa(round)
	}
	return prefix + ":" + s.listen.Addr() + ":" + strconv.Itoa(round)
}
