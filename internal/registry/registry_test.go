package registry

import (
	"testing"

	"github.com/life-stream-dev/go-sttp-publisher/internal/wire"
	uuid "github.com/satori/go.uuid"
)

type fakeSession struct {
	subscriberID uuid.UUID
	connID       string
	remoteAddr   string
	enqueued     []wire.ResponseCode
}

func (f *fakeSession) SubscriberID() uuid.UUID { return f.subscriberID }
func (f *fakeSession) ConnectionID() string    { return f.connID }
func (f *fakeSession) RemoteAddr() string      { return f.remoteAddr }
func (f *fakeSession) Enqueue(code wire.ResponseCode, cmd wire.CommandCode, data []byte) error {
	f.enqueued = append(f.enqueued, code)
	return nil
}

func mustUUID(t *testing.T) uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("uuid.NewV4() error: %v", err)
	}
	return id
}

func TestRegisterAndDispatch(t *testing.T) {
	r := &Registry{}
	sub := &fakeSession{subscriberID: mustUUID(t), connID: "conn-1", remoteAddr: "10.0.0.1:7175"}
	r.Register(sub)

	if err := r.Dispatch(sub.subscriberID, wire.ResponseUserResponse, wire.UserCommand(0), []byte("hi")); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(sub.enqueued) != 1 || sub.enqueued[0] != wire.ResponseUserResponse {
		t.Fatalf("enqueued = %v, want one ResponseUserResponse", sub.enqueued)
	}
}

func TestDispatchUnknownSubscriberErrors(t *testing.T) {
	r := &Registry{}
	if err := r.Dispatch(mustUUID(t), wire.ResponseNoOP, 0, nil); err == nil {
		t.Fatal("expected an error dispatching to an unregistered subscriber")
	}
}

func TestUnregisterRemovesSession(t *testing.T) {
	r := &Registry{}
	sub := &fakeSession{subscriberID: mustUUID(t)}
	r.Register(sub)
	r.Unregister(sub.subscriberID)

	if len(r.Sessions()) != 0 {
		t.Fatalf("Sessions() = %v, want empty after Unregister", r.Sessions())
	}
}

func TestSessionsListsEveryRegisteredSession(t *testing.T) {
	r := &Registry{}
	a := &fakeSession{subscriberID: mustUUID(t), connID: "a"}
	b := &fakeSession{subscriberID: mustUUID(t), connID: "b"}
	r.Register(a)
	r.Register(b)

	summaries := r.Sessions()
	if len(summaries) != 2 {
		t.Fatalf("Sessions() returned %d entries, want 2", len(summaries))
	}
}
