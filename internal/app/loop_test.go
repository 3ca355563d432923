package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
	"github.com/bft-labs/toiopose/internal/toio"
)

var wantDrainedCalls = []string{
	"configure", "register:button", "register:sensor",
	"unregister:sensor", "unregister:button", "disconnect",
}

type runResult struct {
	n   int64
	err error
}

func startLoop(ctx context.Context, l *Loop, policy TerminationPolicy) <-chan runResult {
	out := make(chan runResult, 1)
	go func() {
		n, err := l.Run(ctx, "AA:BB:CC:DD:EE:FF", policy)
		out <- runResult{n, err}
	}()
	return out
}

func waitResult(t *testing.T, ch <-chan runResult) runResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return runResult{}
	}
}

func testLoopConfig() LoopConfig {
	cfg := DefaultLoopConfig()
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

func TestLoop_CountGatedScenario(t *testing.T) {
	conn := newFakeConn()
	renderer := &recordingRenderer{}
	obs := &mockObserver{}
	l := NewLoop(DefaultLoopConfig(), &fakeTransport{conn: conn}, renderer, &mockLogger{}, obs)

	results := startLoop(context.Background(), l, CountGated{N: 200})
	conn.waitRegistered(t, ports.ChannelButton, ports.ChannelSensor)

	malformed := [][]byte{
		{0x03, 0x02, 0x00},
		{0x03, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		toio.EncodeMotion(toio.MotionInfo{Collision: true}),
		{0xff},
		nil,
	}
	for i := 0; i < 200; i++ {
		if i%40 == 0 {
			conn.deliver(ports.ChannelSensor, malformed[i/40])
		}
		q := domain.PostureQuaternionSample{X: 0, Y: 0, Z: 0, W: 1}
		conn.deliver(ports.ChannelSensor, toio.EncodeQuaternion(q))
	}

	r := waitResult(t, results)
	if r.err != nil {
		t.Fatalf("Run error = %v", r.err)
	}
	if r.n != 200 {
		t.Errorf("samples = %d, want 200", r.n)
	}
	if got := len(renderer.poses()); got != 200 {
		t.Errorf("poses published = %d, want 200", got)
	}
	if got := conn.Calls(); !slices.Equal(got, wantDrainedCalls) {
		t.Errorf("calls = %v, want %v", got, wantDrainedCalls)
	}
	if conn.reporting != ports.DefaultPostureReporting() {
		t.Errorf("reporting = %+v, want default", conn.reporting)
	}
	states := obs.States()
	if states[len(states)-1] != SessionClosed {
		t.Errorf("final state = %v, want Closed", states[len(states)-1])
	}
}

func TestLoop_ButtonGatedStopsWithinOneInterval(t *testing.T) {
	conn := newFakeConn()
	renderer := &recordingRenderer{}
	l := NewLoop(DefaultLoopConfig(), &fakeTransport{conn: conn}, renderer, &mockLogger{}, nil)

	results := startLoop(context.Background(), l, ButtonGated{})
	conn.waitRegistered(t, ports.ChannelButton, ports.ChannelSensor)

	stopTraffic := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		payload := toio.EncodeQuaternion(domain.PostureQuaternionSample{W: 1})
		for {
			select {
			case <-stopTraffic:
				return
			default:
			}
			conn.deliver(ports.ChannelSensor, payload)
			time.Sleep(time.Millisecond)
		}
	}()
	defer func() {
		close(stopTraffic)
		wg.Wait()
	}()

	time.Sleep(150 * time.Millisecond)
	pressedAt := time.Now()
	conn.deliver(ports.ChannelButton, toio.EncodeButton(domain.ButtonPressed))

	r := waitResult(t, results)
	elapsed := time.Since(pressedAt)
	if r.err != nil {
		t.Fatalf("Run error = %v", r.err)
	}
	// One 100ms interval plus scheduling slack.
	if elapsed > 250*time.Millisecond {
		t.Errorf("loop stopped %v after the press, want within one interval", elapsed)
	}
	if r.n == 0 {
		t.Error("expected sensor samples to be counted while streaming")
	}
	if got := conn.Calls(); !slices.Equal(got, wantDrainedCalls) {
		t.Errorf("calls = %v, want %v", got, wantDrainedCalls)
	}
}

func TestLoop_ReleaseDoesNotStop(t *testing.T) {
	conn := newFakeConn()
	l := NewLoop(testLoopConfig(), &fakeTransport{conn: conn}, &recordingRenderer{}, &mockLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := startLoop(ctx, l, ButtonGated{})
	conn.waitRegistered(t, ports.ChannelButton)

	conn.deliver(ports.ChannelButton, toio.EncodeButton(domain.ButtonReleased))
	conn.deliver(ports.ChannelButton, []byte{0x01, 0x42})

	select {
	case r := <-results:
		t.Fatalf("loop stopped without a press: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	r := waitResult(t, results)
	if !errors.Is(r.err, domain.ErrCancelled) {
		t.Errorf("error = %v, want ErrCancelled", r.err)
	}
}

func TestLoop_CancellationDrains(t *testing.T) {
	conn := newFakeConn()
	l := NewLoop(DefaultLoopConfig(), &fakeTransport{conn: conn}, &recordingRenderer{}, &mockLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	results := startLoop(ctx, l, ButtonGated{})
	conn.waitRegistered(t, ports.ChannelButton, ports.ChannelSensor)

	for i := 0; i < 3; i++ {
		conn.deliver(ports.ChannelSensor, toio.EncodeQuaternion(domain.PostureQuaternionSample{W: 1}))
	}
	cancelledAt := time.Now()
	cancel()

	r := waitResult(t, results)
	if !errors.Is(r.err, domain.ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", r.err)
	}
	if !errors.Is(r.err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled cause", r.err)
	}
	if elapsed := time.Since(cancelledAt); elapsed > 250*time.Millisecond {
		t.Errorf("cancellation observed after %v", elapsed)
	}
	if r.n != 3 {
		t.Errorf("samples = %d, want 3", r.n)
	}
	if got := conn.Calls(); !slices.Equal(got, wantDrainedCalls) {
		t.Errorf("calls = %v, want %v", got, wantDrainedCalls)
	}
}

func TestLoop_TransportLossDrains(t *testing.T) {
	conn := newFakeConn()
	l := NewLoop(testLoopConfig(), &fakeTransport{conn: conn}, &recordingRenderer{}, &mockLogger{}, nil)

	results := startLoop(context.Background(), l, ButtonGated{})
	conn.waitRegistered(t, ports.ChannelButton, ports.ChannelSensor)

	conn.drop(errBoom)

	r := waitResult(t, results)
	if !errors.Is(r.err, domain.ErrTransport) || !errors.Is(r.err, errBoom) {
		t.Fatalf("error = %v, want ErrTransport wrapping boom", r.err)
	}
	if got := conn.Calls(); !slices.Equal(got, wantDrainedCalls) {
		t.Errorf("calls = %v, want %v", got, wantDrainedCalls)
	}
}

func TestLoop_ConnectFailure(t *testing.T) {
	transport := &fakeTransport{connectErr: errBoom}
	l := NewLoop(testLoopConfig(), transport, &recordingRenderer{}, &mockLogger{}, nil)

	n, err := l.Run(context.Background(), "AA:BB", ButtonGated{})
	if !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("error = %v, want ErrConnection", err)
	}
	if n != 0 {
		t.Errorf("samples = %d, want 0", n)
	}
	if transport.locator != "AA:BB" {
		t.Errorf("locator = %q, want AA:BB", transport.locator)
	}
}

func TestLoop_SetupFailureDrains(t *testing.T) {
	conn := newFakeConn()
	conn.registerErr[ports.ChannelSensor] = errBoom
	l := NewLoop(testLoopConfig(), &fakeTransport{conn: conn}, &recordingRenderer{}, &mockLogger{}, nil)

	_, err := l.Run(context.Background(), "", ButtonGated{})
	if !errors.Is(err, domain.ErrSetup) {
		t.Fatalf("error = %v, want ErrSetup", err)
	}
	want := []string{"configure", "register:button", "register:sensor", "unregister:button", "disconnect"}
	if got := conn.Calls(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestLoop_CountGatedZeroStopsImmediately(t *testing.T) {
	conn := newFakeConn()
	l := NewLoop(testLoopConfig(), &fakeTransport{conn: conn}, &recordingRenderer{}, &mockLogger{}, nil)

	n, err := l.Run(context.Background(), "", CountGated{N: 0})
	if err != nil || n != 0 {
		t.Fatalf("Run = %d, %v; want 0, nil", n, err)
	}
	if got := conn.Calls(); !slices.Equal(got, wantDrainedCalls) {
		t.Errorf("calls = %v, want %v", got, wantDrainedCalls)
	}
}

func TestNewLoop_Defaults(t *testing.T) {
	l := NewLoop(LoopConfig{}, &fakeTransport{}, &recordingRenderer{}, &mockLogger{}, nil)
	if l.config.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", l.config.PollInterval, DefaultPollInterval)
	}
	if l.config.Entity != DefaultEntityPath {
		t.Errorf("Entity = %q, want %q", l.config.Entity, DefaultEntityPath)
	}
	if l.config.DrainTimeout <= 0 {
		t.Error("DrainTimeout not defaulted")
	}
}
