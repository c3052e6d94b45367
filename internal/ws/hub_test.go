package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
	fail   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.msgs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsAndDropsBrokenClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub()
	go h.Run(ctx)

	good, bad := &fakeConn{}, &fakeConn{fail: true}
	h.Register <- good
	h.Register <- bad

	h.Publish(EventLowStock, map[string]string{"code": "PEN-01"})

	waitFor(t, func() bool { return len(good.received()) == 1 })
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	var ev Event
	if err := json.Unmarshal(good.received()[0], &ev); err != nil {
		t.Fatalf("bad event payload: %v", err)
	}
	if ev.Type != EventLowStock {
		t.Errorf("expected %s, got %s", EventLowStock, ev.Type)
	}
	if !bad.closed {
		t.Error("failing client should be closed")
	}
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	done := make(chan struct{})
	go func() { h.Run(ctx); close(done) }()

	c := &fakeConn{}
	h.Register <- c
	cancel()
	<-done

	if !c.closed {
		t.Error("expected client closed on shutdown")
	}
}

func TestAddAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	conn := &fakeConn{}
	if !h.Add(conn) {
		t.Fatal("expected registration while running")
	}
	cancel()
	<-stopped

	if h.Add(&fakeConn{}) {
		t.Error("expected Add to refuse after shutdown")
	}
	h.Remove(conn)
	if !conn.closed {
		t.Error("shutdown should close connected clients")
	}
}
