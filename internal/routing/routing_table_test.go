package routing

import (
	"testing"

	uuid "github.com/satori/go.uuid"
)

func mustUUID(t *testing.T) uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		t.Fatalf("uuid.NewV4() error: %v", err)
	}
	return id
}

func TestUpdateSubscriberRoutesAndUnroutesSignals(t *testing.T) {
	table := NewTable()
	sub := mustUUID(t)
	sigA, sigB := mustUUID(t), mustUUID(t)

	table.UpdateSubscriber(sub, []uuid.UUID{sigA, sigB})
	if subs := table.Subscribers(sigA); len(subs) != 1 || subs[0] != sub {
		t.Fatalf("Subscribers(sigA) = %v, want [%v]", subs, sub)
	}

	table.UpdateSubscriber(sub, []uuid.UUID{sigB})
	if subs := table.Subscribers(sigA); len(subs) != 0 {
		t.Fatalf("Subscribers(sigA) after re-route = %v, want empty", subs)
	}
	if subs := table.Subscribers(sigB); len(subs) != 1 {
		t.Fatalf("Subscribers(sigB) = %v, want [%v]", subs, sub)
	}
}

func TestRemoveSubscriberClearsAllSignals(t *testing.T) {
	table := NewTable()
	sub := mustUUID(t)
	sigA, sigB := mustUUID(t), mustUUID(t)

	table.UpdateSubscriber(sub, []uuid.UUID{sigA, sigB})
	table.RemoveSubscriber(sub)

	if subs := table.Subscribers(sigA); len(subs) != 0 {
		t.Errorf("Subscribers(sigA) = %v, want empty", subs)
	}
	if subs := table.Subscribers(sigB); len(subs) != 0 {
		t.Errorf("Subscribers(sigB) = %v, want empty", subs)
	}
}

func TestMultipleSubscribersOnSameSignal(t *testing.T) {
	table := NewTable()
	sub1, sub2 := mustUUID(t), mustUUID(t)
	sig := mustUUID(t)

	table.UpdateSubscriber(sub1, []uuid.UUID{sig})
	table.UpdateSubscriber(sub2, []uuid.UUID{sig})

	subs := table.Subscribers(sig)
	if len(subs) != 2 {
		t.Fatalf("Subscribers(sig) = %v, want 2 entries", subs)
	}
}
