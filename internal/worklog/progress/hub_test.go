package progress

import (
	"testing"
	"time"

	"github.com/brianly1003/worklog-ingest/internal/worklog/domain"
)

func TestHub_PublishDeliversToSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("client-1")

	h.Publish(domain.ProcessResult{SessionID: "s1", Published: true})

	select {
	case got := <-ch:
		if got.SessionID != "s1" {
			t.Errorf("SessionID = %q, want s1", got.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("client-1")
	h.Unsubscribe("client-1")

	_, ok := <-ch
	if ok {
		t.Fatal("expected channel to be closed after Unsubscribe")
	}
}

func TestHub_MultipleSubscribersAllReceive(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("a")
	b := h.Subscribe("b")

	h.Publish(domain.ProcessResult{SessionID: "s1"})

	for _, ch := range []<-chan domain.ProcessResult{a, b} {
		select {
		case got := <-ch:
			if got.SessionID != "s1" {
				t.Errorf("SessionID = %q", got.SessionID)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published event")
		}
	}
}

func TestHub_SubscriberCount(t *testing.T) {
	h := NewHub()
	if h.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", h.SubscriberCount())
	}
	h.Subscribe("a")
	h.Subscribe("b")
	if h.SubscriberCount() != 2 {
		t.Fatalf("SubscriberCount = %d, want 2", h.SubscriberCount())
	}
	h.Unsubscribe("a")
	if h.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", h.SubscriberCount())
	}
}
