package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/toiopose/internal/ports"
	"github.com/bft-labs/toiopose/internal/toio"
)

// ErrLinkLost is reported by Connection.Err when the cube drops the link.
var ErrLinkLost = errors.New("link lost")

// gattCharacteristic is the subset of bluetooth.DeviceCharacteristic the
// connection uses.
type gattCharacteristic interface {
	EnableNotifications(callback func(buf []byte)) error
	WriteWithoutResponse(p []byte) (int, error)
}

// connection implements ports.Connection over discovered toio
// characteristics.
type connection struct {
	chars           map[ports.Channel]gattCharacteristic
	config          gattCharacteristic
	disconnect      func() error
	responseTimeout time.Duration
	logger          ports.Logger

	mu         sync.Mutex
	registered map[ports.Channel]uint64
	nextID     uint64
	stopWatch  func()

	closing  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
	err      error
}

func newConnection(
	chars map[ports.Channel]gattCharacteristic,
	config gattCharacteristic,
	disconnect func() error,
	responseTimeout time.Duration,
	logger ports.Logger,
) *connection {
	return &connection{
		chars:           chars,
		config:          config,
		disconnect:      disconnect,
		responseTimeout: responseTimeout,
		logger:          logger,
		registered:      make(map[ports.Channel]uint64),
		done:            make(chan struct{}),
	}
}

// ConfigurePostureReporting writes the posture detection command and waits
// briefly for the cube's reply. Firmware that does not reply is accepted.
func (c *connection) ConfigurePostureReporting(ctx context.Context, r ports.PostureReporting) error {
	cmd, err := toio.EncodePostureDetection(r)
	if err != nil {
		return err
	}

	replies := make(chan bool, 1)
	if err := c.config.EnableNotifications(func(buf []byte) {
		if accepted, ok := toio.DecodePostureDetectionResponse(buf); ok {
			select {
			case replies <- accepted:
			default:
			}
		}
	}); err != nil {
		return fmt.Errorf("subscribe configuration: %w", err)
	}
	defer func() {
		if err := c.config.EnableNotifications(nil); err != nil {
			c.logger.Debug("unsubscribe configuration", ports.Err(err))
		}
	}()

	if _, err := c.config.WriteWithoutResponse(cmd); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}

	timer := time.NewTimer(c.responseTimeout)
	defer timer.Stop()

	select {
	case accepted := <-replies:
		if !accepted {
			return errors.New("cube rejected posture detection settings")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		c.logger.Warn("no posture detection response", ports.Duration("waited", c.responseTimeout))
		return nil
	}
}

// Register subscribes fn to ch. A characteristic carries one handler.
func (c *connection) Register(ctx context.Context, ch ports.Channel, fn ports.NotificationFunc) (ports.Handle, error) {
	char, ok := c.chars[ch]
	if !ok {
		return ports.Handle{}, fmt.Errorf("no characteristic for %s channel", ch)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.registered[ch]; busy {
		return ports.Handle{}, fmt.Errorf("%s channel already has a handler", ch)
	}

	err := char.EnableNotifications(func(buf []byte) {
		// The stack may reuse buf after the callback returns.
		p := make([]byte, len(buf))
		copy(p, buf)
		fn(p)
	})
	if err != nil {
		return ports.Handle{}, fmt.Errorf("enable %s notifications: %w", ch, err)
	}

	c.nextID++
	c.registered[ch] = c.nextID
	return ports.Handle{Channel: ch, ID: c.nextID}, nil
}

// Unregister stops notifications for the handler h.
func (c *connection) Unregister(ctx context.Context, h ports.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.registered[h.Channel]; !ok || id != h.ID {
		return fmt.Errorf("unknown handle %s/%d", h.Channel, h.ID)
	}
	delete(c.registered, h.Channel)
	if err := c.chars[h.Channel].EnableNotifications(nil); err != nil {
		return fmt.Errorf("disable %s notifications: %w", h.Channel, err)
	}
	return nil
}

// Disconnect releases the link.
func (c *connection) Disconnect(ctx context.Context) error {
	c.closing.Store(true)
	c.mu.Lock()
	stop := c.stopWatch
	c.stopWatch = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
	return c.disconnect()
}

func (c *connection) Done() <-chan struct{} { return c.done }

func (c *connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// setWatch installs the stop function of a link-loss watcher.
func (c *connection) setWatch(stop func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopWatch = stop
}

// fail closes Done with err unless Disconnect has been called.
func (c *connection) fail(err error) {
	if c.closing.Load() {
		return
	}
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}
