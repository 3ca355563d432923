// Package sim provides a simulated toio cube that speaks the cube's wire
// format, for running without Bluetooth hardware.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
	"github.com/bft-labs/toiopose/internal/toio"
)

// deviceTimeUnit is the cube's reporting interval unit.
const deviceTimeUnit = 10 * time.Millisecond

// Config controls the simulated cube.
type Config struct {
	// PressAfter presses and releases the button once this long after
	// streaming starts. Zero never presses.
	PressAfter time.Duration

	// DropAfter drops the link this long after connecting. Zero never
	// drops.
	DropAfter time.Duration

	// MotionEvery interleaves a motion-detection payload after this many
	// posture samples. Zero disables.
	MotionEvery int
}

// Transport implements ports.DeviceTransport with simulated cubes.
type Transport struct {
	cfg    Config
	logger ports.Logger
}

// NewTransport creates a simulated transport.
func NewTransport(cfg Config, logger ports.Logger) *Transport {
	return &Transport{cfg: cfg, logger: logger}
}

// Connect returns a new simulated cube. The locator is only logged.
func (t *Transport) Connect(ctx context.Context, locator string) (ports.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.logger.Info("connected to simulated cube", ports.String("locator", locator))
	c := &Connection{
		cfg:      t.cfg,
		handlers: make(map[ports.Channel]registered),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
		start:    time.Now(),
	}
	if t.cfg.DropAfter > 0 {
		c.dropTimer = time.AfterFunc(t.cfg.DropAfter, func() {
			c.Drop(errors.New("simulated link loss"))
		})
	}
	return c, nil
}

type registered struct {
	id uint64
	fn ports.NotificationFunc
}

// Connection is one simulated cube link.
type Connection struct {
	cfg   Config
	start time.Time

	mu        sync.Mutex
	reporting *ports.PostureReporting
	handlers  map[ports.Channel]registered
	nextID    uint64
	running   bool
	stopped   bool
	dropTimer *time.Timer
	wg        sync.WaitGroup
	stop      chan struct{}

	done     chan struct{}
	doneOnce sync.Once
	err      error
}

// ConfigurePostureReporting selects the reported posture format.
func (c *Connection) ConfigurePostureReporting(ctx context.Context, r ports.PostureReporting) error {
	if _, err := toio.EncodePostureDetection(r); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reporting = &r
	return nil
}

// Register subscribes fn to ch. The sample generator starts with the first
// registration.
func (c *Connection) Register(ctx context.Context, ch ports.Channel, fn ports.NotificationFunc) (ports.Handle, error) {
	if ch != ports.ChannelButton && ch != ports.ChannelSensor {
		return ports.Handle{}, fmt.Errorf("no characteristic for %s channel", ch)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ports.Handle{}, errors.New("disconnected")
	}
	if _, busy := c.handlers[ch]; busy {
		return ports.Handle{}, fmt.Errorf("%s channel already has a handler", ch)
	}
	c.nextID++
	c.handlers[ch] = registered{id: c.nextID, fn: fn}

	if !c.running {
		c.running = true
		c.wg.Add(1)
		go c.generate(c.interval())
	}
	return ports.Handle{Channel: ch, ID: c.nextID}, nil
}

// Unregister removes the handler for h.
func (c *Connection) Unregister(ctx context.Context, h ports.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.handlers[h.Channel]
	if !ok || r.id != h.ID {
		return fmt.Errorf("unknown handle %s/%d", h.Channel, h.ID)
	}
	delete(c.handlers, h.Channel)
	return nil
}

// Disconnect stops the generator.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return errors.New("already disconnected")
	}
	c.stopped = true
	if c.dropTimer != nil {
		c.dropTimer.Stop()
	}
	close(c.stop)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Drop simulates the cube going out of range.
func (c *Connection) Drop(err error) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// interval is the sensor period for the configured reporting. Caller holds
// c.mu.
func (c *Connection) interval() time.Duration {
	if c.reporting == nil || c.reporting.Interval == 0 {
		return deviceTimeUnit
	}
	return time.Duration(c.reporting.Interval) * deviceTimeUnit
}

func (c *Connection) handler(ch ports.Channel) ports.NotificationFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers[ch].fn
}

func (c *Connection) mode() ports.PostureMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reporting == nil {
		return ports.PostureEuler
	}
	return c.reporting.Mode
}

// generate emits sensor payloads every interval and the button press.
// Handlers run on this goroutine, so calls per channel are sequential.
func (c *Connection) generate(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var press <-chan time.Time
	if c.cfg.PressAfter > 0 {
		t := time.NewTimer(c.cfg.PressAfter)
		defer t.Stop()
		press = t.C
	}

	samples := 0
	for {
		select {
		case <-c.stop:
			return
		case <-press:
			if fn := c.handler(ports.ChannelButton); fn != nil {
				fn(toio.EncodeButton(domain.ButtonPressed))
				fn(toio.EncodeButton(domain.ButtonReleased))
			}
		case now := <-ticker.C:
			fn := c.handler(ports.ChannelSensor)
			if fn == nil {
				continue
			}
			samples++
			if c.cfg.MotionEvery > 0 && samples%c.cfg.MotionEvery == 0 {
				fn(toio.EncodeMotion(toio.MotionInfo{Horizontal: true}))
			}
			fn(c.payload(now.Sub(c.start)))
		}
	}
}

// payload encodes the posture at elapsed in the configured format.
func (c *Connection) payload(elapsed time.Duration) []byte {
	roll, pitch, yaw := Attitude(elapsed)
	switch c.mode() {
	case ports.PostureQuaternion:
		return toio.EncodeQuaternion(QuaternionFromEuler(roll, pitch, yaw))
	case ports.PostureHighPrecisionEuler:
		return toio.EncodeHighPrecisionEuler(domain.EulerAngles{Roll: roll, Pitch: pitch, Yaw: yaw})
	default:
		return toio.EncodeEuler(domain.EulerAngles{Roll: roll, Pitch: pitch, Yaw: yaw})
	}
}

// Attitude is the simulated roll, pitch and yaw in degrees: a slow
// wobble while spinning about the vertical axis.
func Attitude(elapsed time.Duration) (roll, pitch, yaw float64) {
	s := elapsed.Seconds()
	return 20 * math.Sin(s), 15 * math.Cos(s*0.7), math.Mod(s*30, 360)
}

// QuaternionFromEuler converts Z-Y-X Euler angles in degrees to a unit
// quaternion.
func QuaternionFromEuler(roll, pitch, yaw float64) domain.PostureQuaternionSample {
	r, p, y := roll*math.Pi/360, pitch*math.Pi/360, yaw*math.Pi/360
	cr, sr := math.Cos(r), math.Sin(r)
	cp, sp := math.Cos(p), math.Sin(p)
	cy, sy := math.Cos(y), math.Sin(y)
	return domain.PostureQuaternionSample{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}
