// Package registry keeps a process-wide table of active subscriber
// sessions. It absorbs the role the teacher's device registry played
// (enumerate active connections, push a message to one by ID) but stays
// in-process: nothing here exposes a network admin API, since no other
// component needs one and building one would mean hand-rolling the
// generated RPC types the original service depended on but never
// shipped.
package registry

import (
	"fmt"
	"sync"

	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/wire"
	uuid "github.com/satori/go.uuid"
)

// Session is the subset of session behavior the registry needs: enough
// to list a connection and push a response frame to it. internal/session
// implements this directly.
type Session interface {
	SubscriberID() uuid.UUID
	ConnectionID() string
	RemoteAddr() string
	Enqueue(code wire.ResponseCode, cmd wire.CommandCode, data []byte) error
}

// SessionSummary is a read-only snapshot of one registered session, the
// shape exposed by Sessions().
type SessionSummary struct {
	SubscriberID uuid.UUID
	ConnectionID string
	RemoteAddr   string
}

// Registry is a sync.Map-backed table of subscriberID -> Session, mirroring
// the singleton connection-manager pattern used elsewhere in the
// publisher for process-wide shared state.
type Registry struct {
	sessions sync.Map // uuid.UUID -> Session
}

var (
	instance     *Registry
	instanceOnce sync.Once
)

// Get returns the process-wide registry singleton.
func Get() *Registry {
	instanceOnce.Do(func() {
		instance = &Registry{}
	})
	return instance
}

// Register adds a session, called from Session.Start as soon as the
// connection is accepted, before DefineOperationalModes validates it.
func (r *Registry) Register(s Session) {
	r.sessions.Store(s.SubscriberID(), s)
	logger.InfoF("Session registered: sub=%s conn=%s remote=%s", s.SubscriberID(), s.ConnectionID(), s.RemoteAddr())
}

// Unregister removes a session, called from StopConnection.
func (r *Registry) Unregister(subscriberID uuid.UUID) {
	if _, ok := r.sessions.LoadAndDelete(subscriberID); ok {
		logger.InfoF("Session unregistered: sub=%s", subscriberID)
	}
}

// Sessions lists every currently registered session.
func (r *Registry) Sessions() []SessionSummary {
	var out []SessionSummary
	r.sessions.Range(func(key, value any) bool {
		s := value.(Session)
		out = append(out, SessionSummary{
			SubscriberID: s.SubscriberID(),
			ConnectionID: s.ConnectionID(),
			RemoteAddr:   s.RemoteAddr(),
		})
		return true
	})
	return out
}

// Dispatch pushes a response frame to a single session by subscriber
// ID, for administrative pushes. UserCommand00..15 replies do not pass
// through here; Session.Dispatch answers them directly.
func (r *Registry) Dispatch(subscriberID uuid.UUID, code wire.ResponseCode, cmd wire.CommandCode, data []byte) error {
	value, ok := r.sessions.Load(subscriberID)
	if !ok {
		return fmt.Errorf("no session registered for subscriber %s", subscriberID)
	}
	return value.(Session).Enqueue(code, cmd, data)
}
