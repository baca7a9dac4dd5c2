package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{ID: "42", Type: "snippet.added", Data: map[string]any{"document": "a.toml", "indexes": []int{0}}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 42\nevent: snippet.added\n") {
			t.Errorf("missing id or event type in %q", s)
		}
		if !strings.Contains(s, `"document":"a.toml"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishGeneratesEventID(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypePaletteChanged, Data: map[string][]string{"colors": {"#fff"}}})

	select {
	case msg := <-ch:
		first, _, _ := strings.Cut(string(msg), "\n")
		id := strings.TrimPrefix(first, "id: ")
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("event id %q is not a UUID: %v", id, err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishVaultEvent_Throttle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger vault.changed.
	b.PublishVaultEvent("created", "a.toml")
	// Second event immediately should NOT trigger another vault.changed.
	b.PublishVaultEvent("updated", "b.toml")
	// Unknown kinds are dropped.
	b.PublishVaultEvent("renamed", "c.toml")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	summaryCount := 0
	docCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "event: "+TypeVaultChanged+"\n") {
				summaryCount++
			} else {
				docCount++
			}
		default:
			break loop
		}
	}

	if docCount != 2 {
		t.Errorf("document events = %d, want 2", docCount)
	}
	if summaryCount != 1 {
		t.Errorf("vault.changed events = %d, want 1 (throttled)", summaryCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "document.saved", Data: map[string]string{"document": "x.toml"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: document.saved") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "document.saved", Data: map[string]string{"document": "x.toml"}})
	b.PublishVaultEvent("updated", "x.toml")
}

func TestSubscribeFiltersByTypePrefix(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe("snippet.", TypePaletteChanged)
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "document.saved", Data: nil})
	b.Publish(Event{Type: "snippet.moved", Data: nil})
	b.PublishVaultEvent("created", "a.toml")
	b.Publish(Event{Type: TypePaletteChanged, Data: nil})

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case msg := <-ch:
			_, rest, _ := strings.Cut(string(msg), "event: ")
			typ, _, _ := strings.Cut(rest, "\n")
			got = append(got, typ)
		case <-timeout:
			t.Fatalf("timeout, got %v", got)
		}
	}
	if got[0] != "snippet.moved" || got[1] != TypePaletteChanged {
		t.Errorf("events = %v", got)
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra event %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHandler_TypesQuery(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events?types=vault.", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	b.Publish(Event{Type: "document.saved", Data: nil})
	b.PublishVaultEvent("deleted", "x.toml")
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if strings.Contains(body, "document.saved") {
		t.Errorf("filtered event leaked: %q", body)
	}
	if !strings.Contains(body, "event: "+TypeVaultDeleted) || !strings.Contains(body, "event: "+TypeVaultChanged) {
		t.Errorf("vault events missing: %q", body)
	}
}
