// Package ble reaches toio cubes over Bluetooth Low Energy.
//
// GATT traffic goes through tinygo.org/x/bluetooth. On Linux the adapter is
// additionally checked and watched through BlueZ over D-Bus.
package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/bft-labs/toiopose/internal/ports"
	"github.com/bft-labs/toiopose/internal/toio"
)

// ErrNoCube is returned when scanning ends without a matching cube.
var ErrNoCube = errors.New("no matching cube found")

// Config contains BLE transport settings.
type Config struct {
	// Adapter is the BlueZ adapter name used for preflight and link
	// watching.
	Adapter string

	// DeviceName is matched against advertised names when no locator is
	// given.
	DeviceName string

	// ScanTimeout bounds device discovery.
	ScanTimeout time.Duration

	// ResponseTimeout bounds the wait for the configuration reply.
	ResponseTimeout time.Duration

	// UseBlueZ enables the D-Bus preflight and link-loss watch.
	UseBlueZ bool
}

// DefaultConfig returns settings for the first local adapter.
func DefaultConfig() Config {
	return Config{
		Adapter:         "hci0",
		DeviceName:      toio.DefaultLocalName,
		ScanTimeout:     10 * time.Second,
		ResponseTimeout: 500 * time.Millisecond,
		UseBlueZ:        true,
	}
}

// Transport implements ports.DeviceTransport for toio cubes.
type Transport struct {
	cfg     Config
	adapter *bluetooth.Adapter
	logger  ports.Logger

	enableOnce sync.Once
	enableErr  error
	bluez      *BlueZ

	linksMu sync.Mutex
	links   map[string]*connection
}

// NewTransport creates a transport on the default adapter.
func NewTransport(cfg Config, logger ports.Logger) *Transport {
	def := DefaultConfig()
	if cfg.Adapter == "" {
		cfg.Adapter = def.Adapter
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = def.DeviceName
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = def.ScanTimeout
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = def.ResponseTimeout
	}
	return &Transport{
		cfg:     cfg,
		adapter: bluetooth.DefaultAdapter,
		logger:  logger,
		links:   make(map[string]*connection),
	}
}

// Close releases the D-Bus connection, if any.
func (t *Transport) Close() {
	if t.bluez != nil {
		t.bluez.Close()
	}
}

func (t *Transport) enable() error {
	t.enableOnce.Do(func() {
		if t.cfg.UseBlueZ {
			bz, err := NewBlueZ(t.cfg.Adapter)
			if err != nil {
				t.logger.Warn("bluez preflight skipped", ports.Err(err))
			} else if err := bz.EnsurePowered(t.logger); err != nil {
				bz.Close()
				t.enableErr = err
				return
			} else {
				t.bluez = bz
			}
		}
		t.adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
			t.linkChanged(d.Address.String(), connected)
		})
		if err := t.adapter.Enable(); err != nil {
			t.enableErr = fmt.Errorf("enable bluetooth stack: %w", err)
			return
		}
		t.logger.Debug("bluetooth stack enabled")
	})
	return t.enableErr
}

// Connect scans for the cube named by locator, connects, and discovers the
// toio characteristics.
func (t *Transport) Connect(ctx context.Context, locator string) (ports.Connection, error) {
	if err := t.enable(); err != nil {
		return nil, err
	}

	result, err := t.scan(ctx, locator)
	if err != nil {
		return nil, err
	}
	addr := result.Address.String()
	t.logger.Info("connecting", ports.String("address", addr), ports.String("name", result.LocalName()))

	device, err := t.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	chars, config, err := discover(device.DiscoverServices)
	if err != nil {
		_ = device.Disconnect()
		return nil, err
	}

	conn := newConnection(chars, config, func() error {
		t.untrack(addr)
		return device.Disconnect()
	}, t.cfg.ResponseTimeout, t.logger)
	t.track(addr, conn)
	if t.bluez != nil {
		conn.setWatch(t.bluez.WatchDisconnect(addr, t.logger, func() {
			conn.fail(fmt.Errorf("%w: %s", ErrLinkLost, addr))
		}))
	}
	t.logger.Info("connected", ports.String("address", addr))
	return conn, nil
}

// track routes connect handler events for addr to conn.
func (t *Transport) track(addr string, conn *connection) {
	t.linksMu.Lock()
	defer t.linksMu.Unlock()
	t.links[strings.ToUpper(addr)] = conn
}

func (t *Transport) untrack(addr string) {
	t.linksMu.Lock()
	defer t.linksMu.Unlock()
	delete(t.links, strings.ToUpper(addr))
}

// linkChanged is the adapter's connect handler. It works on every platform;
// the BlueZ watch only adds a second source on Linux.
func (t *Transport) linkChanged(addr string, connected bool) {
	if connected {
		return
	}
	t.linksMu.Lock()
	conn, ok := t.links[strings.ToUpper(addr)]
	delete(t.links, strings.ToUpper(addr))
	t.linksMu.Unlock()
	if !ok {
		return
	}
	t.logger.Warn("cube disconnected", ports.String("address", addr))
	conn.fail(fmt.Errorf("%w: %s", ErrLinkLost, addr))
}

// scan returns the first advertisement matching locator.
func (t *Transport) scan(ctx context.Context, locator string) (bluetooth.ScanResult, error) {
	service, err := bluetooth.ParseUUID(toio.ServiceUUID)
	if err != nil {
		return bluetooth.ScanResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.ScanTimeout)
	defer cancel()

	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	t.logger.Info("scanning", ports.String("locator", locator), ports.Duration("timeout", t.cfg.ScanTimeout))
	go func() {
		scanErr <- t.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if !matchesLocator(locator, t.cfg.DeviceName, r.LocalName(), r.Address.String(), r.HasServiceUUID(service)) {
				return
			}
			select {
			case found <- r:
				_ = a.StopScan()
			default:
			}
		})
	}()

	select {
	case r := <-found:
		<-scanErr
		return r, nil
	case err := <-scanErr:
		if err != nil {
			return bluetooth.ScanResult{}, fmt.Errorf("scan: %w", err)
		}
		return bluetooth.ScanResult{}, ErrNoCube
	case <-ctx.Done():
		_ = t.adapter.StopScan()
		<-scanErr
		// A match may have raced the deadline.
		select {
		case r := <-found:
			return r, nil
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return bluetooth.ScanResult{}, fmt.Errorf("%w within %s", ErrNoCube, t.cfg.ScanTimeout)
		}
		return bluetooth.ScanResult{}, ctx.Err()
	}
}

// matchesLocator decides whether an advertisement is the requested cube.
// A locator containing ':' is a MAC address, anything else an advertised
// name. With no locator, the configured name or the toio service matches.
func matchesLocator(locator, defaultName, name, addr string, hasService bool) bool {
	switch {
	case locator == "":
		return hasService || (name != "" && name == defaultName)
	case strings.Contains(locator, ":"):
		return strings.EqualFold(locator, addr)
	default:
		return name == locator
	}
}

// discover finds the toio service and its button, sensor and configuration
// characteristics.
func discover(discoverServices func([]bluetooth.UUID) ([]bluetooth.DeviceService, error)) (map[ports.Channel]gattCharacteristic, gattCharacteristic, error) {
	uuids := make(map[string]bluetooth.UUID)
	for _, s := range []string{toio.ServiceUUID, toio.ButtonUUID, toio.SensorUUID, toio.ConfigurationUUID} {
		u, err := bluetooth.ParseUUID(s)
		if err != nil {
			return nil, nil, err
		}
		uuids[s] = u
	}

	services, err := discoverServices([]bluetooth.UUID{uuids[toio.ServiceUUID]})
	if err != nil {
		return nil, nil, fmt.Errorf("discover services: %w", err)
	}
	if len(services) == 0 {
		return nil, nil, errors.New("toio service not found")
	}

	found, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{
		uuids[toio.ButtonUUID], uuids[toio.SensorUUID], uuids[toio.ConfigurationUUID],
	})
	if err != nil {
		return nil, nil, fmt.Errorf("discover characteristics: %w", err)
	}

	chars := make(map[ports.Channel]gattCharacteristic)
	var config gattCharacteristic
	for i := range found {
		c := &found[i]
		switch c.UUID() {
		case uuids[toio.ButtonUUID]:
			chars[ports.ChannelButton] = c
		case uuids[toio.SensorUUID]:
			chars[ports.ChannelSensor] = c
		case uuids[toio.ConfigurationUUID]:
			config = c
		}
	}
	if chars[ports.ChannelButton] == nil || chars[ports.ChannelSensor] == nil || config == nil {
		return nil, nil, errors.New("toio characteristics incomplete")
	}
	return chars, config, nil
}
