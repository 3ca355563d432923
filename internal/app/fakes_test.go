package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// recordingLogger keeps every message with its level.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg)
}

func (l *recordingLogger) Debug(msg string, fields ...ports.Field) { l.add("DBG", msg) }
func (l *recordingLogger) Info(msg string, fields ...ports.Field)  { l.add("INF", msg) }
func (l *recordingLogger) Warn(msg string, fields ...ports.Field)  { l.add("WRN", msg) }
func (l *recordingLogger) Error(msg string, fields ...ports.Field) { l.add("ERR", msg) }

func (l *recordingLogger) count(line string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.lines {
		if got == line {
			n++
		}
	}
	return n
}

// recordingRenderer keeps every logged record.
type recordingRenderer struct {
	mu      sync.Mutex
	scene   string
	entries []loggedRecord
	logErr  error
}

type loggedRecord struct {
	path   string
	rec    domain.Record
	static bool
}

func (r *recordingRenderer) Init(ctx context.Context, scene string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scene = scene
	return nil
}

func (r *recordingRenderer) Log(path string, rec domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, loggedRecord{path: path, rec: rec})
	return r.logErr
}

func (r *recordingRenderer) LogStatic(path string, rec domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, loggedRecord{path: path, rec: rec, static: true})
	return r.logErr
}

func (r *recordingRenderer) Close() error { return nil }

func (r *recordingRenderer) poses() []domain.PoseUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PoseUpdate
	for _, e := range r.entries {
		if p, ok := e.rec.(domain.PoseUpdate); ok {
			out = append(out, p)
		}
	}
	return out
}

// fakeTransport hands out a single fakeConn.
type fakeTransport struct {
	conn       *fakeConn
	connectErr error
	locator    string
}

func (t *fakeTransport) Connect(ctx context.Context, locator string) (ports.Connection, error) {
	t.locator = locator
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	return t.conn, nil
}

// fakeConn records the calls made on it in order.
type fakeConn struct {
	mu       sync.Mutex
	calls    []string
	handlers map[ports.Channel]ports.NotificationFunc
	nextID   uint64

	reporting     ports.PostureReporting
	configureErr  error
	registerErr   map[ports.Channel]error
	unregisterErr error

	done     chan struct{}
	doneErr  error
	doneOnce sync.Once

	// onCall runs after each recorded call.
	onCall func(call string)
	// ctxErrs holds ctx.Err() seen by each unregister and disconnect.
	ctxErrs map[string]error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		handlers:    make(map[ports.Channel]ports.NotificationFunc),
		registerErr: make(map[ports.Channel]error),
		done:        make(chan struct{}),
		ctxErrs:     make(map[string]error),
	}
}

func (c *fakeConn) record(call string) {
	c.calls = append(c.calls, call)
	if c.onCall != nil {
		c.onCall(call)
	}
}

func (c *fakeConn) ConfigurePostureReporting(ctx context.Context, r ports.PostureReporting) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("configure")
	c.reporting = r
	return c.configureErr
}

func (c *fakeConn) Register(ctx context.Context, ch ports.Channel, fn ports.NotificationFunc) (ports.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("register:" + ch.String())
	if err := c.registerErr[ch]; err != nil {
		return ports.Handle{}, err
	}
	c.nextID++
	c.handlers[ch] = fn
	return ports.Handle{Channel: ch, ID: c.nextID}, nil
}

func (c *fakeConn) Unregister(ctx context.Context, h ports.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("unregister:" + h.Channel.String())
	c.ctxErrs["unregister:"+h.Channel.String()] = ctx.Err()
	delete(c.handlers, h.Channel)
	return c.unregisterErr
}

func (c *fakeConn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("disconnect")
	c.ctxErrs["disconnect"] = ctx.Err()
	return nil
}

func (c *fakeConn) Done() <-chan struct{} { return c.done }

func (c *fakeConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doneErr
}

// drop simulates the link going away.
func (c *fakeConn) drop(err error) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.doneErr = err
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *fakeConn) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.calls...)
}

// deliver calls the handler registered for ch, if any.
func (c *fakeConn) deliver(ch ports.Channel, payload []byte) bool {
	c.mu.Lock()
	fn := c.handlers[ch]
	c.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(payload)
	return true
}

// waitRegistered blocks until handlers exist for every channel in chs.
func (c *fakeConn) waitRegistered(t *testing.T, chs ...ports.Channel) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		all := true
		for _, ch := range chs {
			if c.handlers[ch] == nil {
				all = false
			}
		}
		c.mu.Unlock()
		if all {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("handlers for %v never registered", chs)
}

// mockObserver tracks session state changes.
type mockObserver struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous SessionState
	current  SessionState
	reason   string
}

func (m *mockObserver) OnSessionState(previous, current SessionState, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockObserver) States() []SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SessionState
	for _, e := range m.events {
		out = append(out, e.current)
	}
	return out
}

var errBoom = errors.New("boom")
